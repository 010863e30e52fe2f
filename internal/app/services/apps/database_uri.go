package apps

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
)

// URIGenerator selects a single connection string from the ordered URIs found
// in an app's service binding credentials.
type URIGenerator interface {
	Generate(uris []string) (string, bool)
}

// DefaultURIGenerator picks the first URI with a recognized relational
// database scheme.
type DefaultURIGenerator struct{}

var databaseSchemes = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"mysql":      true,
	"mysql2":     true,
	"sqlserver":  true,
	"oracle":     true,
	"db2":        true,
	"sqlite":     true,
}

func (DefaultURIGenerator) Generate(uris []string) (string, bool) {
	for _, uri := range uris {
		scheme, _, ok := strings.Cut(uri, "://")
		if ok && databaseSchemes[strings.ToLower(scheme)] {
			return uri, true
		}
	}
	return "", false
}

// DatabaseURI derives a single connection string from the app's service
// bindings. Bindings without credentials or without a string `uri` entry are
// skipped. The second return is false when no usable URI exists.
func (s *Service) DatabaseURI(ctx context.Context, appGUID string) (string, bool, error) {
	bindings, err := s.bindings.ListServiceBindingsByApp(ctx, appGUID)
	if err != nil {
		return "", false, err
	}

	var uris []string
	for _, b := range bindings {
		if len(b.Credentials) == 0 {
			continue
		}
		uri := gjson.GetBytes(b.Credentials, "uri")
		if uri.Type == gjson.String && uri.Str != "" {
			uris = append(uris, uri.Str)
		}
	}
	if len(uris) == 0 {
		return "", false, nil
	}

	result, ok := s.uriGenerator.Generate(uris)
	return result, ok, nil
}
