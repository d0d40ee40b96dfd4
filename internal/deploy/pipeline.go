package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// RegistryOptions controls `deploy registry`.
type RegistryOptions struct {
	Repository      string
	Tag             string
	Platform        string
	Dockerfile      string
	Builder         string
	Region          string
	RegistryName    string
	RegistryTier    string
	SkipDockerCheck bool
}

// AppOptions controls `deploy app`.
type AppOptions struct {
	RegistryOptions
	AppName      string
	InstanceSize string
	Env          map[string]string
	Secrets      map[string]string
	PollInterval time.Duration
	PollAttempts int
	// SmokePrompt is sent to the live app once it is active. Empty skips
	// the smoke test.
	SmokePrompt string
}

// Cloud pushes images to the registry and rolls them out on the platform.
type Cloud struct {
	docker   *Docker
	platform Platform
	rep      *Reporter

	// newInvoker builds the smoke-test client; replaced in tests.
	newInvoker func(baseURL string) *InvokeClient
}

// NewCloud returns a cloud deployer.
func NewCloud(d *Docker, p Platform, rep *Reporter) *Cloud {
	return &Cloud{docker: d, platform: p, rep: rep, newInvoker: NewInvokeClient}
}

// PushImage verifies credentials, ensures the registry, logs docker in and
// builds and pushes the image. It returns the pushed image URI.
func (c *Cloud) PushImage(ctx context.Context, opts RegistryOptions) (string, Registry, error) {
	if !opts.SkipDockerCheck {
		if err := c.docker.Check(ctx); err != nil {
			c.rep.Fail("Docker is not running", "Start Docker Desktop", "Use --skip-docker-check if using remote Docker")
			return "", Registry{}, err
		}
		c.rep.OK("Docker is running")
	}

	c.rep.Step("Verifying cloud credentials")
	acct, err := c.platform.Account(ctx)
	if err != nil {
		c.rep.Fail(fmt.Sprintf("Credential error: %v", err),
			"Create an API token in the DigitalOcean control panel",
			"export DIGITALOCEAN_TOKEN=your-token",
		)
		return "", Registry{}, err
	}
	c.rep.OK("Account: %s", acct.Email)
	c.rep.OK("Region: %s", opts.Region)

	c.rep.Step("Setting up container registry")
	reg, err := c.platform.EnsureRegistry(ctx, opts.RegistryName, opts.Region, opts.RegistryTier)
	if err != nil {
		c.rep.Fail(fmt.Sprintf("Registry error: %v", err),
			"Ensure your token has write scope",
			"Check the registry subscription tier",
		)
		return "", Registry{}, err
	}
	if reg.Created {
		c.rep.OK("Created registry '%s'", reg.Name)
	} else {
		c.rep.OK("Registry '%s' already exists", reg.Name)
	}

	image := reg.ImageURI(opts.Repository, opts.Tag)
	c.rep.Info("Target image URI: %s", image)

	c.rep.Info("Logging into registry...")
	creds, err := c.platform.DockerCredentials(ctx)
	if err == nil {
		err = c.docker.Login(ctx, creds.Server, creds.Username, creds.Password)
	}
	if err != nil {
		c.rep.Fail("Registry login failed")
		return "", Registry{}, err
	}
	c.rep.OK("Registry login successful")

	c.rep.Step("Building and pushing Docker image")
	if _, err := os.Stat(opts.Dockerfile); err != nil {
		c.rep.Fail("Dockerfile not found at " + opts.Dockerfile)
		return "", Registry{}, fmt.Errorf("dockerfile %s: %w", opts.Dockerfile, err)
	}
	created, err := c.docker.EnsureBuilder(ctx, opts.Builder)
	if err != nil {
		c.rep.Fail("Docker buildx is unavailable", "Update Docker to a version with buildx")
		return "", Registry{}, err
	}
	if created {
		c.rep.Info("Created buildx builder %s", opts.Builder)
	}
	c.rep.Info("Building %s image...", opts.Platform)
	c.rep.Info("Pushing to: %s", image)
	if err := c.docker.BuildAndPush(ctx, opts.Platform, opts.Dockerfile, image); err != nil {
		c.rep.Fail("Docker build/push failed",
			"Ensure Docker Desktop is running",
			"Check your Dockerfile exists",
			"Verify the registry login succeeded",
		)
		return "", Registry{}, err
	}
	c.rep.OK("Docker image built and pushed")
	return image, reg, nil
}

// Registry runs the full `deploy registry` flow.
func (c *Cloud) Registry(ctx context.Context, opts RegistryOptions) (string, error) {
	c.rep.Header("Agent runtime - registry deployment")
	image, _, err := c.PushImage(ctx, opts)
	if err != nil {
		return "", err
	}

	c.rep.Success("Registry deployment successful")
	c.rep.Summary("Deployment summary",
		"Repository: "+opts.Repository,
		"Image URI: "+image,
		"Region: "+opts.Region,
		"Platform: "+opts.Platform,
	)
	c.rep.Summary("Next steps",
		"1. Deploy the image as an app: agentcore deploy app",
		"2. Or reference this image in an existing app spec:",
		"   "+image,
	)
	return image, nil
}

// App pushes the image, creates or updates the app, waits for the rollout
// and smoke-tests the live URL.
func (c *Cloud) App(ctx context.Context, opts AppOptions) (App, error) {
	c.rep.Header("Agent runtime - app deployment")
	_, reg, err := c.PushImage(ctx, opts.RegistryOptions)
	if err != nil {
		return App{}, err
	}

	c.rep.Step("Creating or updating app " + opts.AppName)
	app, dep, err := c.platform.UpsertApp(ctx, AppSpec{
		Name:         opts.AppName,
		Region:       opts.Region,
		Registry:     reg.Name,
		Repository:   opts.Repository,
		Tag:          opts.Tag,
		InstanceSize: opts.InstanceSize,
		HTTPPort:     containerPort,
		HealthPath:   "/ping",
		Env:          opts.Env,
		Secrets:      opts.Secrets,
	})
	if err != nil {
		c.rep.Fail(fmt.Sprintf("App deployment failed: %v", err),
			"Check the instance size and region are valid",
			"Ensure OPENAI_API_KEY is set",
		)
		return App{}, err
	}
	c.rep.OK("App %s (%s), deployment %s", app.Name, app.ID, dep.ID)

	c.rep.Step("Waiting for deployment to become active")
	dep, err = WaitForDeployment(ctx, c.platform, app.ID, dep.ID, opts.PollInterval, opts.PollAttempts, func(attempt int, d Deployment) {
		line := fmt.Sprintf("[%d/%d] phase %s", attempt, opts.PollAttempts, d.Phase)
		if d.Progress != "" {
			line += " (" + d.Progress + " steps)"
		}
		c.rep.Info("%s", line)
	})
	if err != nil {
		var pe *PhaseError
		if errors.As(err, &pe) {
			c.rep.Fail(err.Error(), "Inspect the build and deploy logs in the control panel")
		} else {
			c.rep.Fail(err.Error(), "Check again later with: agentcore deploy status")
		}
		return app, err
	}
	c.rep.OK("Deployment %s is active", dep.ID)

	if live, err := c.platform.FindApp(ctx, opts.AppName); err == nil {
		app = live
	}

	if opts.SmokePrompt != "" && app.LiveURL != "" {
		c.rep.Step("Testing deployed agent")
		env, err := c.newInvoker(app.LiveURL).Invoke(ctx, opts.SmokePrompt, "")
		switch {
		case err != nil:
			c.rep.Info("Test failed (this can happen while the app warms up): %v", err)
		case !env.OK():
			c.rep.Info("Test returned an error envelope: %s", env.Error)
		default:
			c.rep.OK("Test successful")
		}
	}

	c.rep.Success("Deployment complete")
	c.rep.Summary("App",
		"Name: "+app.Name,
		"ID: "+app.ID,
		"Live URL: "+app.LiveURL,
		"Region: "+opts.Region,
	)
	return app, nil
}

// Status prints the app's current state.
func (c *Cloud) Status(ctx context.Context, name string) (App, error) {
	app, err := c.platform.FindApp(ctx, name)
	if err != nil {
		if errors.Is(err, ErrAppNotFound) {
			c.rep.Fail("No app named "+name, "Deploy it with: agentcore deploy app")
		}
		return App{}, err
	}
	phase := app.Phase
	if phase == "" {
		phase = "unknown"
	}
	c.rep.Summary("App "+app.Name,
		"ID: "+app.ID,
		"Phase: "+phase,
		"Live URL: "+app.LiveURL,
		"Updated: "+app.UpdatedAt.Format(time.RFC3339),
	)
	return app, nil
}
