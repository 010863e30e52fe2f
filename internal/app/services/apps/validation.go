package apps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
)

// nameFormat admits printable names of at least one character.
var nameFormat = regexp.MustCompile(`^[[:alnum:][:punct:][:print:]]+$`)

// EnvVarValidator inspects a candidate environment variable mapping and
// reports violations. Implementations must not mutate the mapping.
type EnvVarValidator interface {
	ValidateEach(envs map[string]string) []Violation
}

// ReservedPrefixValidator is the default environment variable validator. It
// rejects keys the platform itself owns.
type ReservedPrefixValidator struct{}

var reservedEnvPrefixes = []string{"VCAP_"}

func (ReservedPrefixValidator) ValidateEach(envs map[string]string) []Violation {
	var violations []Violation
	for key := range envs {
		upper := strings.ToUpper(key)
		if key == "" {
			violations = append(violations, Violation{
				Field:   "environment_variables",
				Code:    CodeInvalidEnvVar,
				Message: "keys must not be empty",
			})
			continue
		}
		if upper == "PORT" {
			violations = append(violations, Violation{
				Field:   key,
				Code:    CodeInvalidEnvVar,
				Message: "PORT is set by the platform and cannot be overridden",
			})
			continue
		}
		for _, prefix := range reservedEnvPrefixes {
			if strings.HasPrefix(upper, prefix) {
				violations = append(violations, Violation{
					Field:   key,
					Code:    CodeInvalidEnvVar,
					Message: fmt.Sprintf("keys with the %s prefix are reserved", prefix),
				})
			}
		}
	}
	return violations
}

// validate runs every rule over the candidate state and collects all
// violations. It reads committed state (droplets, the name index) but never
// writes. excludeGUID exempts the app's own row from the uniqueness check on
// renames.
func (s *Service) validate(ctx context.Context, candidate app.App, excludeGUID string) ([]Violation, error) {
	var violations []Violation

	if candidate.Name == "" {
		violations = append(violations, Violation{
			Field:   "name",
			Code:    CodeMissingField,
			Message: "name is required",
		})
	}
	if !nameFormat.MatchString(candidate.Name) {
		violations = append(violations, Violation{
			Field:   "name",
			Code:    CodeInvalidFormat,
			Message: "name must consist of printable characters",
		})
	}

	violations = append(violations, s.envValidator.ValidateEach(candidate.EnvironmentVariables)...)

	if candidate.DropletGUID != "" {
		droplet, err := s.droplets.GetDroplet(ctx, candidate.DropletGUID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			violations = append(violations, Violation{
				Field:   "droplet",
				Code:    CodeDropletNotStaged,
				Message: "current droplet does not exist",
			})
		case err != nil:
			return nil, err
		case droplet.State != artifact.DropletStaged:
			violations = append(violations, Violation{
				Field:   "droplet",
				Code:    CodeDropletNotStaged,
				Message: "current droplet must be in the STAGED state",
			})
		}
	}

	// Early reject only; the storage unique index is authoritative under
	// concurrent writers.
	taken, err := s.apps.AppNameTaken(ctx, candidate.SpaceGUID, candidate.Name, excludeGUID)
	if err != nil {
		return nil, err
	}
	if taken {
		violations = append(violations, duplicateNameViolation())
	}

	return violations, nil
}

func duplicateNameViolation() Violation {
	return Violation{
		Field:   "name",
		Code:    CodeDuplicateName,
		Message: "name must be unique in space",
	}
}
