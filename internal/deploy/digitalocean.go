package deploy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"

	"github.com/soyeahso/agentcore/internal/version"
)

// DefaultRegistryServer is the DigitalOcean container registry host.
const DefaultRegistryServer = "registry.digitalocean.com"

// tokenSource implements oauth2.TokenSource for a static API token.
type tokenSource struct {
	AccessToken string
}

func (t *tokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: t.AccessToken}, nil
}

// DigitalOcean implements Platform with the App Platform and the
// container registry.
type DigitalOcean struct {
	client *godo.Client
}

// NewDigitalOcean returns a platform authenticated with token. endpoint
// overrides the API base URL when non-empty.
func NewDigitalOcean(ctx context.Context, token, endpoint string) (*DigitalOcean, error) {
	if token == "" {
		return nil, errors.New("DIGITALOCEAN_TOKEN is not set")
	}
	return newDigitalOcean(oauth2.NewClient(ctx, &tokenSource{AccessToken: token}), endpoint)
}

func newDigitalOcean(httpClient *http.Client, endpoint string) (*DigitalOcean, error) {
	opts := []godo.ClientOpt{godo.SetUserAgent(version.UserAgent())}
	if endpoint != "" {
		opts = append(opts, godo.SetBaseURL(strings.TrimSuffix(endpoint, "/")+"/"))
	}
	client, err := godo.New(httpClient, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating DigitalOcean client: %w", err)
	}
	return &DigitalOcean{client: client}, nil
}

func (d *DigitalOcean) Account(ctx context.Context) (Account, error) {
	acct, _, err := d.client.Account.Get(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("fetching account: %w", err)
	}
	return Account{UUID: acct.UUID, Email: acct.Email, Status: acct.Status}, nil
}

// EnsureRegistry returns the account's registry, creating it when the
// account has none. DigitalOcean allows one registry per account, so an
// existing registry with another name is returned as is.
func (d *DigitalOcean) EnsureRegistry(ctx context.Context, name, region, tier string) (Registry, error) {
	reg, _, err := d.client.Registry.Get(ctx)
	if err == nil {
		return Registry{Name: reg.Name, Server: DefaultRegistryServer, Region: reg.Region}, nil
	}
	if !isNotFound(err) {
		return Registry{}, fmt.Errorf("fetching registry: %w", err)
	}

	reg, _, err = d.client.Registry.Create(ctx, &godo.RegistryCreateRequest{
		Name:                 name,
		SubscriptionTierSlug: tier,
		Region:               region,
	})
	if err != nil {
		return Registry{}, fmt.Errorf("creating registry %q: %w", name, err)
	}
	return Registry{Name: reg.Name, Server: DefaultRegistryServer, Region: reg.Region, Created: true}, nil
}

type dockerConfig struct {
	Auths map[string]struct {
		Auth string `json:"auth"`
	} `json:"auths"`
}

// DockerCredentials returns read-write credentials for docker login.
func (d *DigitalOcean) DockerCredentials(ctx context.Context) (Credentials, error) {
	creds, _, err := d.client.Registry.DockerCredentials(ctx, &godo.RegistryDockerCredentialsRequest{ReadWrite: true})
	if err != nil {
		return Credentials{}, fmt.Errorf("fetching registry credentials: %w", err)
	}
	return parseDockerConfig(creds.DockerConfigJSON)
}

func parseDockerConfig(data []byte) (Credentials, error) {
	var cfg dockerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Credentials{}, fmt.Errorf("parsing docker config: %w", err)
	}

	servers := make([]string, 0, len(cfg.Auths))
	for server := range cfg.Auths {
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return Credentials{}, errors.New("docker config has no registry auths")
	}
	sort.Strings(servers)

	server := servers[0]
	raw, err := base64.StdEncoding.DecodeString(cfg.Auths[server].Auth)
	if err != nil {
		return Credentials{}, fmt.Errorf("decoding registry auth: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credentials{}, errors.New("registry auth is not user:password")
	}
	return Credentials{Server: server, Username: user, Password: pass}, nil
}

func (d *DigitalOcean) FindApp(ctx context.Context, name string) (App, error) {
	app, err := d.findApp(ctx, name)
	if err != nil {
		return App{}, err
	}
	return toApp(app), nil
}

func (d *DigitalOcean) findApp(ctx context.Context, name string) (*godo.App, error) {
	opt := &godo.ListOptions{PerPage: 200}
	for {
		apps, resp, err := d.client.Apps.List(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("listing apps: %w", err)
		}
		for _, app := range apps {
			if app.Spec != nil && app.Spec.Name == name {
				return app, nil
			}
		}

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = page + 1
	}
	return nil, ErrAppNotFound
}

func (d *DigitalOcean) UpsertApp(ctx context.Context, spec AppSpec) (App, Deployment, error) {
	appSpec := buildAppSpec(spec)

	existing, err := d.findApp(ctx, spec.Name)
	var app *godo.App
	switch {
	case errors.Is(err, ErrAppNotFound):
		app, _, err = d.client.Apps.Create(ctx, &godo.AppCreateRequest{Spec: appSpec})
		if err != nil {
			return App{}, Deployment{}, fmt.Errorf("creating app %q: %w", spec.Name, err)
		}
	case err != nil:
		return App{}, Deployment{}, err
	default:
		app, _, err = d.client.Apps.Update(ctx, existing.ID, &godo.AppUpdateRequest{Spec: appSpec})
		if err != nil {
			return App{}, Deployment{}, fmt.Errorf("updating app %q: %w", spec.Name, err)
		}
	}

	deps, _, err := d.client.Apps.ListDeployments(ctx, app.ID, &godo.ListOptions{PerPage: 1})
	if err != nil {
		return toApp(app), Deployment{}, fmt.Errorf("listing deployments: %w", err)
	}
	if len(deps) == 0 {
		return toApp(app), Deployment{}, errors.New("platform started no deployment")
	}
	return toApp(app), toDeployment(deps[0]), nil
}

func (d *DigitalOcean) Deployment(ctx context.Context, appID, deploymentID string) (Deployment, error) {
	dep, _, err := d.client.Apps.GetDeployment(ctx, appID, deploymentID)
	if err != nil {
		return Deployment{}, err
	}
	return toDeployment(dep), nil
}

func buildAppSpec(spec AppSpec) *godo.AppSpec {
	var envs []*godo.AppVariableDefinition
	for _, key := range sortedKeys(spec.Env) {
		envs = append(envs, &godo.AppVariableDefinition{
			Key:   key,
			Value: spec.Env[key],
			Scope: godo.AppVariableScope_RunTime,
			Type:  godo.AppVariableType_General,
		})
	}
	for _, key := range sortedKeys(spec.Secrets) {
		envs = append(envs, &godo.AppVariableDefinition{
			Key:   key,
			Value: spec.Secrets[key],
			Scope: godo.AppVariableScope_RunTime,
			Type:  godo.AppVariableType_Secret,
		})
	}

	return &godo.AppSpec{
		Name:   spec.Name,
		Region: spec.Region,
		Services: []*godo.AppServiceSpec{{
			Name: spec.Name,
			Image: &godo.ImageSourceSpec{
				RegistryType: godo.ImageSourceSpecRegistryType_DOCR,
				Registry:     spec.Registry,
				Repository:   spec.Repository,
				Tag:          spec.Tag,
			},
			HTTPPort:         int64(spec.HTTPPort),
			InstanceSizeSlug: spec.InstanceSize,
			InstanceCount:    1,
			HealthCheck:      &godo.AppServiceSpecHealthCheck{HTTPPath: spec.HealthPath},
			Envs:             envs,
		}},
	}
}

func toApp(app *godo.App) App {
	out := App{ID: app.ID, LiveURL: app.LiveURL, UpdatedAt: app.UpdatedAt}
	if app.Spec != nil {
		out.Name = app.Spec.Name
	}
	if app.ActiveDeployment != nil {
		out.Phase = string(app.ActiveDeployment.Phase)
	}
	if app.InProgressDeployment != nil {
		out.Phase = string(app.InProgressDeployment.Phase)
	}
	return out
}

func toDeployment(dep *godo.Deployment) Deployment {
	out := Deployment{ID: dep.ID, Phase: string(dep.Phase)}
	if p := dep.Progress; p != nil && p.TotalSteps > 0 {
		out.Progress = fmt.Sprintf("%d/%d", p.SuccessSteps, p.TotalSteps)
	}
	return out
}

func isNotFound(err error) bool {
	var er *godo.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
