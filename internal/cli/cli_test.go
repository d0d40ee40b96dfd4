package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/agentcore/internal/config"
	"github.com/soyeahso/agentcore/internal/deploy"
	"github.com/soyeahso/agentcore/internal/llm"
	"github.com/soyeahso/agentcore/internal/logging"
	"github.com/soyeahso/agentcore/internal/store"
)

// isolate points the CLI at a temporary home and clears the environment
// variables the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("AGENTCORE_HOME", home)
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "DIGITALOCEAN_TOKEN",
		"AGENTCORE_ENDPOINT", "AGENTCORE_LOG_LEVEL", "PORT", "HOST",
	} {
		t.Setenv(key, "")
	}
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file=", "--log-level=silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

type stubPrompter struct {
	input   string
	confirm bool
	asked   []string
}

func (s *stubPrompter) AskInput(label, _ string) (string, error) {
	s.asked = append(s.asked, label)
	return s.input, nil
}

func (s *stubPrompter) AskConfirm(label string, _ bool) (bool, error) {
	s.asked = append(s.asked, label)
	return s.confirm, nil
}

func withPrompter(t *testing.T, p Prompter, tty bool) {
	t.Helper()
	oldP, oldI := prompter, interactive
	prompter = p
	interactive = func() bool { return tty }
	t.Cleanup(func() { prompter, interactive = oldP, oldI })
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentcore dev")
}

func TestConfigCmd_SetGetUnset(t *testing.T) {
	home := isolate(t)

	out, err := execute(t, "config", "set", "openai.model", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "Set openai.model = gpt-4o\n", out)

	_, err = execute(t, "config", "set", "server.port", "9001")
	require.NoError(t, err)

	out, err = execute(t, "config", "get", "openai.model")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o\n", out)

	out, err = execute(t, "config", "get", "server")
	require.NoError(t, err)
	assert.Equal(t, "port: 9001\n", out)

	out, err = execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)

	_, err = execute(t, "config", "unset", "openai.model")
	require.NoError(t, err)
	_, err = execute(t, "config", "get", "openai.model")
	assert.EqualError(t, err, `key "openai.model" not found`)

	_, err = execute(t, "config", "set", "a..b", "x")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "gateway.port", "1")
	assert.EqualError(t, err, "config: unknown config section: gateway")
}

func TestConfigCmd_ShowRedactsSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijkl")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "****ijkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")
	assert.Contains(t, out, "model: gpt-4o-mini")
}

func TestConfigCmd_Validate(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "validate", "--deploy")
	assert.EqualError(t, err, "2 validation issue(s)")
	assert.Contains(t, out, "openai.apiKey: OPENAI_API_KEY environment variable is required")
	assert.Contains(t, out, "deploy.token")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	out, err = execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "Config is valid\n", out)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("TRUE"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, 42, parseValue("42"))
	assert.Equal(t, 0.5, parseValue("0.5"))
	assert.Equal(t, "gpt-4o", parseValue("gpt-4o"))
	assert.Equal(t, "1e", parseValue("1e"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "(not set)", redact(""))
	assert.Equal(t, "****", redact("short"))
	assert.Equal(t, "****wxyz", redact("dop_v1_abcdwxyz"))
}

func runtimeConfig() config.Config {
	c := config.Defaults()
	c.OpenAI.APIKey = "sk-test"
	c.Memory.Path = ":memory:"
	return c
}

func TestBuildRuntime(t *testing.T) {
	rt, err := buildRuntime(runtimeConfig(), config.Paths{}, &llm.MockClient{}, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, []string{"calculator", "memory"}, rt.runner.Tools().Names())
	assert.NotNil(t, rt.db)

	env := rt.entry.Invoke(context.Background(), map[string]any{"prompt": "hi"})
	require.True(t, env.OK())

	env = rt.entry.Invoke(context.Background(), map[string]any{})
	assert.Equal(t, "Invalid request: No prompt found in payload. Please provide a 'prompt' key.", env.Error)
}

func TestBuildRuntime_MemoryDisabled(t *testing.T) {
	c := runtimeConfig()
	off := false
	c.Memory.Enabled = &off

	rt, err := buildRuntime(c, config.Paths{}, &llm.MockClient{}, logging.New(nil, "silent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"calculator"}, rt.runner.Tools().Names())
	assert.Nil(t, rt.db)
	assert.NoError(t, rt.Close())
}

func TestBuildRuntime_InvalidConfig(t *testing.T) {
	c := runtimeConfig()
	c.OpenAI.APIKey = ""
	c.Server.Port = 0

	_, err := buildRuntime(c, config.Paths{}, &llm.MockClient{}, logging.New(nil, "silent"))
	assert.EqualError(t, err, "config validation failed with 2 issue(s)")
}

func TestRunLocal(t *testing.T) {
	rt, err := buildRuntime(runtimeConfig(), config.Paths{}, &llm.MockClient{}, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer rt.Close()

	var out, errOut bytes.Buffer
	require.NoError(t, runLocal(context.Background(), rt.entry, "hi", true, &out, &errOut))
	assert.Equal(t, "mock stream response\n", out.String())
	assert.Contains(t, errOut.String(), `"result"`)

	out.Reset()
	require.NoError(t, runLocal(context.Background(), rt.entry, "hi", false, &out, &errOut))
	assert.Contains(t, out.String(), "mock response")

	failing := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("upstream down")
	}}
	rt2, err := buildRuntime(runtimeConfig(), config.Paths{}, failing, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer rt2.Close()

	out.Reset()
	err = runLocal(context.Background(), rt2.entry, "hi", false, &out, &errOut)
	assert.EqualError(t, err, "Failed to process request: LLM completion: upstream down")
	assert.Contains(t, out.String(), `"error": "Failed to process request: LLM completion: upstream down"`)
}

func TestInvokeCmd(t *testing.T) {
	isolate(t)
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prompts = append(prompts, r.Header.Get("X-Amzn-Bedrock-AgentCore-Runtime-Session-Id"))
		w.Write([]byte(`{"result":{"role":"assistant","content":[{"text":"4"}]}}`))
	}))
	defer srv.Close()

	out, err := execute(t, "invoke", "--url", srv.URL, "--session-id", "abc", "what", "is", "2+2")
	require.NoError(t, err)
	assert.Contains(t, out, `"text": "4"`)
	require.Len(t, prompts, 1)
	assert.Len(t, prompts[0], 33)
}

func TestInvokeCmd_PromptsWhenInteractive(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Invalid request: No prompt found in payload. Please provide a 'prompt' key."}`))
	}))
	defer srv.Close()

	p := &stubPrompter{input: "hello"}
	withPrompter(t, p, true)
	out, err := execute(t, "invoke", "--url", srv.URL)
	assert.Error(t, err)
	assert.Equal(t, []string{"Prompt:"}, p.asked)
	assert.Contains(t, out, `"error"`)

	withPrompter(t, p, false)
	_, err = execute(t, "invoke", "--url", srv.URL)
	assert.EqualError(t, err, "a prompt argument is required")
}

func TestStatusCmd(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijkl")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"Healthy","time_of_last_update":0}`))
	}))
	defer srv.Close()

	out, err := execute(t, "status", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "(not found, using defaults)")
	assert.Contains(t, out, "API key: ****ijkl")
	assert.Contains(t, out, "Runtime: "+srv.URL+" Healthy (since 1970-01-01T00:00:00Z)")
	assert.NotContains(t, out, "Validation issues")
	assert.Contains(t, out, "memory.db (empty)")
}

func TestStatusCmd_MemorySummary(t *testing.T) {
	home := isolate(t)
	db, err := store.Open(filepath.Join(home, "data", "memory.db"), logging.New(nil, "silent"))
	require.NoError(t, err)
	_, err = store.NewMemoryStore(db).Store(context.Background(), store.MemoryChunk{OwnerID: "u1", Content: "likes tea"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "status", "--url", "http://127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "memory.db (1 chunks, schema v2)")
	assert.Contains(t, out, "unreachable")
}

// fakeCommands answers commands whose line starts with a key.
type fakeCommands map[string]string

func (f fakeCommands) Output(_ context.Context, _ io.Reader, name string, args ...string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	for prefix, out := range f {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func (f fakeCommands) Attached(context.Context, string, ...string) error { return nil }

func TestKillPortCmd(t *testing.T) {
	isolate(t)
	old, oldKill := commandRunner, killProcess
	t.Cleanup(func() { commandRunner, killProcess = old, oldKill })

	commandRunner = fakeCommands{"lsof -t -i:9100": "321"}
	var killed []int
	killProcess = func(pid int) error {
		killed = append(killed, pid)
		return nil
	}

	out, err := execute(t, "kill-port", "9100")
	require.NoError(t, err)
	assert.Equal(t, []int{321}, killed)
	assert.Equal(t, "Killed process 321 on port 9100\n", out)

	_, err = execute(t, "kill-port", "http")
	assert.EqualError(t, err, `invalid port "http"`)
}

type stubPlatform struct {
	deploy.Platform
	apps map[string]deploy.App
}

func (s stubPlatform) FindApp(_ context.Context, name string) (deploy.App, error) {
	app, ok := s.apps[name]
	if !ok {
		return deploy.App{}, deploy.ErrAppNotFound
	}
	return app, nil
}

func withPlatform(t *testing.T, p deploy.Platform) {
	t.Helper()
	old := newPlatform
	newPlatform = func(context.Context, config.DeployConfig) (deploy.Platform, error) { return p, nil }
	t.Cleanup(func() { newPlatform = old })
}

func TestDeployStatusCmd(t *testing.T) {
	isolate(t)
	withPlatform(t, stubPlatform{apps: map[string]deploy.App{
		"openai-strands-agent": {ID: "app-1", Name: "openai-strands-agent", Phase: "ACTIVE", LiveURL: "https://a.example.com"},
	}})

	_, err := execute(t, "deploy", "status")
	assert.EqualError(t, err, "deploy config validation failed with 1 issue(s)")

	t.Setenv("DIGITALOCEAN_TOKEN", "dop_v1_token")
	out, err := execute(t, "deploy", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase: ACTIVE")
	assert.Contains(t, out, "Live URL: https://a.example.com")

	_, err = execute(t, "deploy", "status", "--name", "other")
	assert.ErrorIs(t, err, deploy.ErrAppNotFound)
}

func TestDeployAppCmd_Confirmation(t *testing.T) {
	isolate(t)
	t.Setenv("DIGITALOCEAN_TOKEN", "dop_v1_token")

	_, err := execute(t, "deploy", "app")
	assert.EqualError(t, err, "OPENAI_API_KEY is required to deploy the app")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	withPrompter(t, &stubPrompter{}, false)
	_, err = execute(t, "deploy", "app")
	assert.EqualError(t, err, "refusing to deploy without confirmation; pass --yes")

	p := &stubPrompter{confirm: false}
	withPrompter(t, p, true)
	out, err := execute(t, "deploy", "app", "--name", "my-agent", "--tag", "v2")
	require.NoError(t, err)
	assert.Equal(t, "Deployment cancelled\n", out)
	require.Len(t, p.asked, 1)
	assert.Equal(t, `Deploy openai-strands-agent:v2 as app "my-agent" in nyc?`, p.asked[0])
}

func TestDeployLocalCmd(t *testing.T) {
	isolate(t)
	old := commandRunner
	t.Cleanup(func() { commandRunner = old })
	commandRunner = fakeCommands{"docker ps -f": "agent-local   Up"}

	_, err := execute(t, "deploy", "local", "--build-only", "--run-only")
	assert.Error(t, err)

	out, err := execute(t, "deploy", "local", "--status", "--repository", "agent")
	require.NoError(t, err)
	assert.Contains(t, out, "Container is running")

	dockerfile := filepath.Join(t.TempDir(), "Dockerfile")
	require.NoError(t, os.WriteFile(dockerfile, []byte("FROM scratch\n"), 0o644))
	out, err = execute(t, "deploy", "local", "--build-only", "--dockerfile", dockerfile)
	require.NoError(t, err)
	assert.Contains(t, out, "Local image built: openai-strands-agent:local")
}
