package deploy

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// LocalOptions controls `deploy local`.
type LocalOptions struct {
	Repository string
	Dockerfile string
	EnvFile    string
	Port       int
	BuildOnly  bool
	RunOnly    bool
	Foreground bool
}

// containerPort is the port the runtime listens on inside the image.
const containerPort = 8080

// LocalImage is the tag used for locally built images.
func LocalImage(repository string) string { return repository + ":local" }

// LocalContainer is the name of the locally running container.
func LocalContainer(repository string) string { return repository + "-local" }

// Local builds and runs the runtime image on the local docker daemon.
type Local struct {
	docker *Docker
	rep    *Reporter
}

// NewLocal returns a local deployer.
func NewLocal(d *Docker, rep *Reporter) *Local {
	return &Local{docker: d, rep: rep}
}

// Deploy builds and/or runs the container according to opts.
func (l *Local) Deploy(ctx context.Context, opts LocalOptions) error {
	l.rep.Header("Agent runtime - local deployment")

	if err := l.docker.Check(ctx); err != nil {
		l.rep.Fail("Docker is not running", "Start Docker Desktop", "Ensure the Docker daemon is accessible")
		return err
	}
	l.rep.OK("Docker is running")

	if !opts.RunOnly {
		if err := l.build(ctx, opts); err != nil {
			return err
		}
	}
	if !opts.BuildOnly {
		if err := l.run(ctx, opts); err != nil {
			return err
		}
	}

	switch {
	case opts.BuildOnly:
		l.rep.Success("Local build complete")
	case opts.RunOnly:
		l.rep.Success("Local container started")
	default:
		l.rep.Success("Local deployment complete")
		l.rep.Summary("Local deployment summary",
			"Image: "+LocalImage(opts.Repository),
			"Container: "+LocalContainer(opts.Repository),
			fmt.Sprintf("Port: %d", opts.Port),
		)
		l.rep.Summary("Next steps",
			fmt.Sprintf("1. Invoke the agent: agentcore invoke --url http://localhost:%d \"Hello\"", opts.Port),
			fmt.Sprintf("2. Check health: http://localhost:%d/ping", opts.Port),
			"3. View logs: docker logs "+LocalContainer(opts.Repository),
			"4. When ready, push the image: agentcore deploy registry",
		)
	}
	return nil
}

func (l *Local) build(ctx context.Context, opts LocalOptions) error {
	l.rep.Step("Building local Docker image")
	if _, err := os.Stat(opts.Dockerfile); err != nil {
		l.rep.Fail("Dockerfile not found at " + opts.Dockerfile)
		return fmt.Errorf("dockerfile %s: %w", opts.Dockerfile, err)
	}

	image := LocalImage(opts.Repository)
	l.rep.Info("Building image: %s", image)
	l.rep.Info("Using Dockerfile: %s", opts.Dockerfile)
	if err := l.docker.Build(ctx, opts.Dockerfile, image); err != nil {
		l.rep.Fail("Docker build failed",
			"Ensure Docker Desktop is running",
			"Check your Dockerfile syntax",
			"Verify all required files exist",
		)
		return err
	}
	l.rep.OK("Local image built: %s", image)
	return nil
}

func (l *Local) run(ctx context.Context, opts LocalOptions) error {
	l.rep.Step("Running local container")
	name := LocalContainer(opts.Repository)

	if l.docker.RemoveContainer(ctx, name) {
		l.rep.Info("Cleaned up existing container")
	}

	envFile := opts.EnvFile
	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			l.rep.Info("No %s found; starting without an env file", envFile)
			envFile = ""
		}
	}

	l.rep.Info("Starting container on port %d...", opts.Port)
	err := l.docker.Run(ctx, RunOptions{
		Name:          name,
		Image:         LocalImage(opts.Repository),
		HostPort:      opts.Port,
		ContainerPort: containerPort,
		EnvFile:       envFile,
		Detached:      !opts.Foreground,
	})
	if err != nil {
		l.rep.Fail("Failed to run container",
			"Check if the port is already in use (agentcore kill-port)",
			"Ensure the image was built successfully",
			"Verify Docker Desktop is running",
		)
		return err
	}

	if opts.Foreground {
		l.rep.OK("Container exited")
		return nil
	}
	l.rep.OK("Container running in background")
	l.rep.Info("Container name: %s", name)
	l.rep.Info("Local URL: http://localhost:%d", opts.Port)
	l.rep.Info("Health check: http://localhost:%d/ping", opts.Port)
	l.rep.Summary("Container management",
		"View logs: docker logs "+name,
		"Stop: docker stop "+name,
		"Remove: docker rm "+name,
	)
	return nil
}

// Status prints whether the local container is running or stopped.
func (l *Local) Status(ctx context.Context, repository string) error {
	l.rep.Step("Container status")
	name := LocalContainer(repository)

	out, err := l.docker.PS(ctx, name, false)
	if err != nil {
		l.rep.Fail("Failed to check container status")
		return err
	}
	if strings.Contains(out, name) {
		l.rep.OK("Container is running:")
		l.rep.Info("%s", out)
		return nil
	}

	l.rep.Info("Container is not currently running")
	out, err = l.docker.PS(ctx, name, true)
	if err != nil {
		return err
	}
	if strings.Contains(out, name) {
		l.rep.Info("Stopped container found:")
		l.rep.Info("%s", out)
		l.rep.Info("Start with: docker start %s", name)
	}
	return nil
}
