// Package artifact holds the staging artifacts an app accumulates: source
// packages, the builds that stage them, and the droplets builds produce.
// These records are created by the staging subsystem; the app write path only
// reads them.
package artifact

import "time"

// Droplet states.
const (
	DropletStaging = "STAGING"
	DropletStaged  = "STAGED"
	DropletFailed  = "FAILED"
	DropletExpired = "EXPIRED"
)

// Droplet is a staged, runnable artifact produced from a package. Only a
// droplet in the STAGED state may become an app's current droplet.
type Droplet struct {
	GUID        string
	AppGUID     string
	PackageGUID string
	State       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Staged reports whether the droplet reached its terminal runnable state.
func (d Droplet) Staged() bool { return d.State == DropletStaged }

// Build states.
const (
	BuildStaging = "STAGING"
	BuildStaged  = "STAGED"
	BuildFailed  = "FAILED"
)

// Build stages a package into a droplet.
type Build struct {
	GUID      string
	AppGUID   string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Staging reports whether the build is still in progress.
func (b Build) Staging() bool { return b.State == BuildStaging }

// Package types.
const (
	PackageBits   = "bits"
	PackageDocker = "docker"
)

// Package is uploaded app source (bits) or a docker image reference.
type Package struct {
	GUID      string
	AppGUID   string
	Type      string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
