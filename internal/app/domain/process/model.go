package process

import "time"

// TypeWeb is the distinguished process type every app gets by default.
const TypeWeb = "web"

// Process is a runtime unit of an app, distinguished by type. Its version
// token changes whenever the owning app's security-sensitive settings change,
// forcing the scheduler to restart it.
type Process struct {
	GUID         string
	AppGUID      string
	Type         string
	Version      string
	DesiredState string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
