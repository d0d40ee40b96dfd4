package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/agentcore/internal/config"
	"github.com/soyeahso/agentcore/internal/deploy"
)

// newPlatform is replaced in tests.
var newPlatform = func(ctx context.Context, c config.DeployConfig) (deploy.Platform, error) {
	return deploy.NewDigitalOcean(ctx, c.Token, os.Getenv("DIGITALOCEAN_API_URL"))
}

// commandRunner is replaced in tests.
var commandRunner deploy.CommandRunner = deploy.ExecRunner{}

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build, push and deploy the runtime container",
	}

	cmd.AddCommand(newDeployLocalCmd())
	cmd.AddCommand(newDeployRegistryCmd())
	cmd.AddCommand(newDeployAppCmd())
	cmd.AddCommand(newDeployStatusCmd())
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newDeployLocalCmd() *cobra.Command {
	var (
		opts   deploy.LocalOptions
		status bool
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Build and run the runtime image on the local Docker daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.BuildOnly && opts.RunOnly {
				return errors.New("--build-only and --run-only are mutually exclusive")
			}
			if opts.Repository == "" {
				opts.Repository = cfg.Deploy.Repository
			}
			if opts.Dockerfile == "" {
				opts.Dockerfile = cfg.Deploy.Dockerfile
			}
			if opts.Port == 0 {
				opts.Port = cfg.Deploy.LocalPort
			}
			opts.EnvFile = envFile

			ctx, stop := signalContext()
			defer stop()

			local := deploy.NewLocal(deploy.NewDocker(commandRunner), deploy.NewReporter(cmd.OutOrStdout()))
			if status {
				return local.Status(ctx, opts.Repository)
			}
			return local.Deploy(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Repository, "repository", "", "image repository name")
	cmd.Flags().StringVar(&opts.Dockerfile, "dockerfile", "", "path to the Dockerfile")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "host port mapped to the container")
	cmd.Flags().BoolVar(&opts.BuildOnly, "build-only", false, "only build the image")
	cmd.Flags().BoolVar(&opts.RunOnly, "run-only", false, "only run the previously built image")
	cmd.Flags().BoolVar(&opts.Foreground, "foreground", false, "run the container attached")
	cmd.Flags().BoolVar(&status, "status", false, "show the local container status")
	return cmd
}

// registryFlags binds the flags shared by `deploy registry` and `deploy app`.
type registryFlags struct {
	repository      string
	tag             string
	platform        string
	skipDockerCheck bool
}

func (f *registryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repository, "repository", "", "image repository name")
	cmd.Flags().StringVar(&f.tag, "tag", "", "image tag")
	cmd.Flags().StringVar(&f.platform, "platform", "", "target platform for buildx")
	cmd.Flags().BoolVar(&f.skipDockerCheck, "skip-docker-check", false, "do not check the Docker daemon first")
}

func (f *registryFlags) options(d config.DeployConfig) deploy.RegistryOptions {
	opts := deploy.RegistryOptions{
		Repository:      d.Repository,
		Tag:             d.Tag,
		Platform:        d.Platform,
		Dockerfile:      d.Dockerfile,
		Builder:         d.BuilderName,
		Region:          d.Region,
		RegistryName:    d.Registry,
		RegistryTier:    d.RegistryTier,
		SkipDockerCheck: f.skipDockerCheck,
	}
	if f.repository != "" {
		opts.Repository = f.repository
	}
	if f.tag != "" {
		opts.Tag = f.tag
	}
	if f.platform != "" {
		opts.Platform = f.platform
	}
	return opts
}

func newCloud(ctx context.Context, cmd *cobra.Command) (*deploy.Cloud, error) {
	if issues := config.ValidateDeploy(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
		}
		return nil, fmt.Errorf("deploy config validation failed with %d issue(s)", len(issues))
	}
	p, err := newPlatform(ctx, cfg.Deploy)
	if err != nil {
		return nil, err
	}
	return deploy.NewCloud(deploy.NewDocker(commandRunner), p, deploy.NewReporter(cmd.OutOrStdout())), nil
}

func newDeployRegistryCmd() *cobra.Command {
	var flags registryFlags

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Build the image for the cloud platform and push it to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cloud, err := newCloud(ctx, cmd)
			if err != nil {
				return err
			}
			_, err = cloud.Registry(ctx, flags.options(cfg.Deploy))
			return err
		},
	}

	flags.bind(cmd)
	return cmd
}

func newDeployAppCmd() *cobra.Command {
	var (
		flags       registryFlags
		name        string
		yes         bool
		smokePrompt string
	)

	cmd := &cobra.Command{
		Use:   "app",
		Short: "Push the image and create or update the app running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := deploy.AppOptions{
				RegistryOptions: flags.options(cfg.Deploy),
				AppName:         cfg.Deploy.AppName,
				InstanceSize:    cfg.Deploy.InstanceSize,
				Env: map[string]string{
					"OPENAI_MODEL":        cfg.OpenAI.Model,
					"OPENAI_MAX_TOKENS":   fmt.Sprint(cfg.OpenAI.MaxTokens),
					"OPENAI_TEMPERATURE":  fmt.Sprint(cfg.OpenAI.Temperature),
					"ENABLE_TRACING":      fmt.Sprint(cfg.Tracing.Enabled),
					"AGENTCORE_LOG_STYLE": "json",
				},
				Secrets:      map[string]string{},
				PollInterval: time.Duration(cfg.Deploy.PollInterval) * time.Second,
				PollAttempts: cfg.Deploy.PollAttempts,
				SmokePrompt:  smokePrompt,
			}
			if name != "" {
				opts.AppName = name
			}
			if cfg.OpenAI.APIKey == "" {
				return errors.New("OPENAI_API_KEY is required to deploy the app")
			}
			opts.Secrets["OPENAI_API_KEY"] = cfg.OpenAI.APIKey
			if cfg.Agent.SystemPrompt != "" {
				opts.Env["AGENT_SYSTEM_PROMPT"] = cfg.Agent.SystemPrompt
			}

			if !yes {
				if !interactive() {
					return errors.New("refusing to deploy without confirmation; pass --yes")
				}
				ok, err := prompter.AskConfirm(fmt.Sprintf("Deploy %s:%s as app %q in %s?",
					opts.Repository, opts.Tag, opts.AppName, opts.Region), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deployment cancelled")
					return nil
				}
			}

			ctx, stop := signalContext()
			defer stop()

			cloud, err := newCloud(ctx, cmd)
			if err != nil {
				return err
			}
			_, err = cloud.App(ctx, opts)
			return err
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "app name (default deploy.appName)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().StringVar(&smokePrompt, "smoke-prompt", "Hello! Can you tell me what 2+2 equals?", "prompt sent to the live app after deploying (empty skips)")
	return cmd
}

func newDeployStatusCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployed app's state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = cfg.Deploy.AppName
			}

			ctx, stop := signalContext()
			defer stop()

			cloud, err := newCloud(ctx, cmd)
			if err != nil {
				return err
			}
			_, err = cloud.Status(ctx, name)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "app name (default deploy.appName)")
	return cmd
}
