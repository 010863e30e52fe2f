package binding

import (
	"encoding/json"
	"time"
)

// ServiceBinding connects an app to a provisioned service instance. The
// credentials blob is opaque to the control plane; consumers pick the keys
// they understand out of it.
type ServiceBinding struct {
	GUID                string
	AppGUID             string
	ServiceInstanceName string
	Credentials         json.RawMessage
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RouteMapping attaches a route to one process type of an app.
type RouteMapping struct {
	GUID        string
	AppGUID     string
	RouteGUID   string
	ProcessType string
	CreatedAt   time.Time
}
