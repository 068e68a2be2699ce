package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atlas/internal/config"
	"atlas/internal/daemon"
	"atlas/internal/logging"
	"atlas/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.Backend
	daemon     *daemon.Daemon
	logs       *logging.StreamHub
	configPath string
	panelAddr  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackendURL(backend.URL()),
		testsupport.WithPanelToken("cli-token"),
	)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "atlas.toml")
	writeTestConfig(t, configPath, cfg)

	hub := logging.NewStreamHub(64)
	d, err := daemon.New(cfg, logging.NewNop(), daemon.WithLogStream(hub))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		daemon:     d,
		logs:       hub,
		configPath: configPath,
		panelAddr:  d.PanelAddress(),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[backend]\nbase_url = %q\n\n[panel]\nbind = %q\ntoken = %q\n\n[paths]\nstate_dir = %q\nenv_file = %q\n\n[device]\nmonitor_hotplug = false\n",
		cfg.Backend.BaseURL,
		cfg.Panel.Bind,
		cfg.Panel.Token,
		cfg.Paths.StateDir,
		cfg.Paths.EnvFile,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// run executes the CLI against the test panel and returns stdout and stderr.
func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, "", append([]string{"--config", env.configPath, "--panel", env.panelAddr}, args...)...)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireRun(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("atlas %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}
