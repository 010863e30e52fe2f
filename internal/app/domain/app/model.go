package app

import "time"

// DesiredState describes whether an application should be running.
type DesiredState string

const (
	DesiredStopped DesiredState = "STOPPED"
	DesiredStarted DesiredState = "STARTED"
)

// LifecycleType identifies the strategy used to build and run an application.
type LifecycleType string

const (
	LifecycleBuildpack LifecycleType = "buildpack"
	LifecycleDocker    LifecycleType = "docker"
)

// BuildpackLifecycle is the optional sub-record selecting the buildpack
// strategy. Its presence on an App is what makes the app a buildpack app;
// there is no stored discriminator.
type BuildpackLifecycle struct {
	Buildpacks []string
	Stack      string
}

// DockerLifecycle is the stateless null-object returned for apps without a
// buildpack sub-record. It is never persisted.
type DockerLifecycle struct{}

// App is the tenant-facing deployable unit record.
type App struct {
	GUID      string
	SpaceGUID string
	Name      string

	DesiredState DesiredState

	// EnableSSH is nil until the write path resolves it from the platform
	// default. A committed app always has it set.
	EnableSSH *bool

	// EnvironmentVariables is confidential; the storage layer encrypts it at
	// rest. In memory it is a plain map.
	EnvironmentVariables map[string]string

	// Lifecycle selects the buildpack strategy when present.
	Lifecycle *BuildpackLifecycle

	// DropletGUID references the current droplet, when one is assigned.
	DropletGUID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LifecycleType reports which of the two mutually exclusive strategies
// governs the app, derived from the presence of the buildpack sub-record.
func (a App) LifecycleType() LifecycleType {
	if a.Lifecycle != nil {
		return LifecycleBuildpack
	}
	return LifecycleDocker
}

// IsBuildpack reports whether the app is staged from source with buildpacks.
func (a App) IsBuildpack() bool { return a.LifecycleType() == LifecycleBuildpack }

// IsDocker reports whether the app runs a prebuilt image.
func (a App) IsDocker() bool { return a.LifecycleType() == LifecycleDocker }

// LifecycleData returns the buildpack sub-record when one exists, and a fresh
// DockerLifecycle null-object otherwise.
func (a App) LifecycleData() interface{} {
	if a.Lifecycle != nil {
		return *a.Lifecycle
	}
	return DockerLifecycle{}
}

// SSHEnabled returns the resolved enable_ssh flag. It is only meaningful on a
// committed app.
func (a App) SSHEnabled() bool {
	return a.EnableSSH != nil && *a.EnableSSH
}
