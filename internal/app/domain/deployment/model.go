package deployment

import "time"

// Deployment states.
const (
	StateDeploying = "DEPLOYING"
	StateDeployed  = "DEPLOYED"
	StateCanceled  = "CANCELED"
)

// Deployment rolls an app over to a new droplet.
type Deployment struct {
	GUID        string
	AppGUID     string
	DropletGUID string
	State       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
