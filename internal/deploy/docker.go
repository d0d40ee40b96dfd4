// Package deploy sequences the container and cloud tooling used to ship the
// agent runtime: local Docker runs, registry pushes, managed app
// deployments and remote invocations.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// CommandError is returned when an external command exits unsuccessfully.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommandRunner runs external programs.
type CommandRunner interface {
	// Output runs the command with optional stdin and returns its trimmed
	// stdout.
	Output(ctx context.Context, stdin io.Reader, name string, args ...string) (string, error)
	// Attached runs the command with its output streamed to the terminal.
	Attached(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Output(ctx context.Context, stdin io.Reader, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &CommandError{
			Command: commandLine(name, args),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return strings.TrimSpace(string(out)), nil
}

func (r ExecRunner) Attached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: commandLine(name, args), Err: err}
	}
	return nil
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// Docker wraps the docker CLI.
type Docker struct {
	run CommandRunner
}

// NewDocker returns a Docker client running commands through r.
func NewDocker(r CommandRunner) *Docker {
	return &Docker{run: r}
}

// Check fails when the docker daemon is unreachable.
func (d *Docker) Check(ctx context.Context) error {
	_, err := d.run.Output(ctx, nil, "docker", "info")
	return err
}

// Build builds dockerfile from the current directory and tags it.
func (d *Docker) Build(ctx context.Context, dockerfile, tag string) error {
	return d.run.Attached(ctx, "docker", "build", "-f", dockerfile, "-t", tag, ".")
}

// EnsureBuilder makes sure buildx works, creating builder when it does not.
func (d *Docker) EnsureBuilder(ctx context.Context, builder string) (created bool, err error) {
	if _, err := d.run.Output(ctx, nil, "docker", "buildx", "ls"); err == nil {
		return false, nil
	}
	if _, err := d.run.Output(ctx, nil, "docker", "buildx", "create", "--name", builder, "--use"); err != nil {
		return false, err
	}
	return true, nil
}

// BuildAndPush builds for platform with buildx and pushes image.
func (d *Docker) BuildAndPush(ctx context.Context, platform, dockerfile, image string) error {
	return d.run.Attached(ctx, "docker", "buildx", "build",
		"--platform", platform,
		"-f", dockerfile,
		"-t", image,
		"--push",
		".")
}

// Login authenticates against a registry, passing the password on stdin.
func (d *Docker) Login(ctx context.Context, server, username, password string) error {
	_, err := d.run.Output(ctx, strings.NewReader(password), "docker", "login",
		"--username", username,
		"--password-stdin",
		server)
	return err
}

// RunOptions describes a container started by Run.
type RunOptions struct {
	Name          string
	Image         string
	HostPort      int
	ContainerPort int
	EnvFile       string
	Detached      bool
}

// Run starts a container.
func (d *Docker) Run(ctx context.Context, opts RunOptions) error {
	args := []string{"run",
		"--name", opts.Name,
		"-p", fmt.Sprintf("%d:%d", opts.HostPort, opts.ContainerPort),
	}
	if opts.EnvFile != "" {
		args = append(args, "--env-file", opts.EnvFile)
	}
	if opts.Detached {
		args = append(args, "-d")
	}
	args = append(args, opts.Image)
	return d.run.Attached(ctx, "docker", args...)
}

// RemoveContainer stops and removes a container. A missing container is
// not an error.
func (d *Docker) RemoveContainer(ctx context.Context, name string) (removed bool) {
	if _, err := d.run.Output(ctx, nil, "docker", "stop", name); err != nil {
		return false
	}
	_, err := d.run.Output(ctx, nil, "docker", "rm", name)
	return err == nil
}

// PS lists containers whose name matches, including stopped ones when all
// is set.
func (d *Docker) PS(ctx context.Context, name string, all bool) (string, error) {
	args := []string{"ps"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "-f", "name="+name, "--format", "table {{.Names}}\t{{.Status}}\t{{.Ports}}")
	return d.run.Output(ctx, nil, "docker", args...)
}

// ListeningPIDs returns the ids of processes bound to port, using lsof.
func ListeningPIDs(ctx context.Context, r CommandRunner, port int) ([]int, error) {
	out, err := r.Output(ctx, nil, "lsof", "-t", "-i:"+strconv.Itoa(port))
	if err != nil {
		// lsof exits 1 with no output when nothing matches.
		var ce *CommandError
		if errors.As(err, &ce) && ce.Stderr == "" {
			return nil, nil
		}
		return nil, err
	}

	var pids []int
	for _, line := range strings.Fields(out) {
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// KillPort kills every process listening on port and reports what it did
// through report. kill is os.Process.Kill when nil.
func KillPort(ctx context.Context, r CommandRunner, port int, kill func(pid int) error, report io.Writer) error {
	if kill == nil {
		kill = killProcess
	}
	pids, err := ListeningPIDs(ctx, r, port)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		fmt.Fprintf(report, "No process found running on port %d\n", port)
		return nil
	}

	var errs []error
	for _, pid := range pids {
		if err := kill(pid); err != nil {
			fmt.Fprintf(report, "Unable to kill process %d: %v\n", pid, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(report, "Killed process %d on port %d\n", pid, port)
	}
	return errors.Join(errs...)
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
