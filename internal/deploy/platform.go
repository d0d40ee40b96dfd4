package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAppNotFound is returned by Platform.FindApp when no app has the name.
var ErrAppNotFound = errors.New("app not found")

// Deployment phases reported by the platform.
const (
	PhaseActive     = "ACTIVE"
	PhaseFailed     = "ERROR"
	PhaseCanceled   = "CANCELED"
	PhaseSuperseded = "SUPERSEDED"
)

// Account identifies the authenticated cloud account.
type Account struct {
	UUID   string
	Email  string
	Status string
}

// Registry is the account's container registry.
type Registry struct {
	Name    string
	Server  string
	Region  string
	Created bool
}

// ImageURI returns the full reference of repository:tag in the registry.
func (r Registry) ImageURI(repository, tag string) string {
	return fmt.Sprintf("%s/%s/%s:%s", r.Server, r.Name, repository, tag)
}

// Credentials authenticate docker against the registry.
type Credentials struct {
	Server   string
	Username string
	Password string
}

// AppSpec describes the service running the agent image.
type AppSpec struct {
	Name         string
	Region       string
	Registry     string
	Repository   string
	Tag          string
	InstanceSize string
	HTTPPort     int
	HealthPath   string
	Env          map[string]string
	Secrets      map[string]string
}

// App is a deployed application.
type App struct {
	ID      string
	Name    string
	LiveURL string
	// Phase of the active deployment, empty when none is active yet.
	Phase     string
	UpdatedAt time.Time
}

// Deployment is one rollout of an app.
type Deployment struct {
	ID    string
	Phase string
	// Progress is "steps done/total" when the platform reports it.
	Progress string
}

// Platform is the managed container platform hosting the runtime.
type Platform interface {
	Account(ctx context.Context) (Account, error)
	EnsureRegistry(ctx context.Context, name, region, tier string) (Registry, error)
	DockerCredentials(ctx context.Context) (Credentials, error)
	FindApp(ctx context.Context, name string) (App, error)
	// UpsertApp creates the app or updates its spec, returning the
	// deployment that rolls the change out.
	UpsertApp(ctx context.Context, spec AppSpec) (App, Deployment, error)
	Deployment(ctx context.Context, appID, deploymentID string) (Deployment, error)
}

// PhaseError is returned when a deployment ends in a failed phase.
type PhaseError struct {
	DeploymentID string
	Phase        string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("deployment %s ended in phase %s", e.DeploymentID, e.Phase)
}

// ErrDeploymentTimeout is returned when a deployment is not active after
// the configured number of polls.
var ErrDeploymentTimeout = errors.New("deployment did not become active in time")

// WaitForDeployment polls the deployment every interval until it is
// active, failed, or attempts polls have been made. onPoll, if set, sees
// every observed state.
func WaitForDeployment(ctx context.Context, p Platform, appID, deploymentID string, interval time.Duration, attempts int, onPoll func(attempt int, d Deployment)) (Deployment, error) {
	var last Deployment
	for attempt := 1; attempt <= attempts; attempt++ {
		d, err := p.Deployment(ctx, appID, deploymentID)
		if err != nil {
			return last, fmt.Errorf("checking deployment %s: %w", deploymentID, err)
		}
		last = d
		if onPoll != nil {
			onPoll(attempt, d)
		}

		switch d.Phase {
		case PhaseActive:
			return d, nil
		case PhaseFailed, PhaseCanceled, PhaseSuperseded:
			return d, &PhaseError{DeploymentID: d.ID, Phase: d.Phase}
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
	return last, ErrDeploymentTimeout
}
