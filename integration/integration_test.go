//go:build integration

// Package integration provides integration tests for the hquery CLI using testscript.
package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain sets up the testscript environment.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"hquery": hqueryMain,
	}))
}

// hqueryMain wraps the hquery binary for testscript execution.
func hqueryMain() int {
	binary := os.Getenv("HQUERY_BINARY")
	if binary == "" {
		var err error
		binary, err = exec.LookPath("hquery")
		if err != nil {
			fmt.Fprintf(os.Stderr, "hquery binary not found: set HQUERY_BINARY or add hquery to PATH\n")
			return 1
		}
	}

	cmd := exec.Command(binary, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

// TestScripts runs all testscript files in testdata/scripts.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata/scripts",
		Setup: setupTestEnv,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"sleep": cmdSleep,
		},
		Condition: evalCondition,
	})
}

// setupTestEnv configures the test environment with an isolated home and a
// user catalog directory.
func setupTestEnv(env *testscript.Env) error {
	testHome := filepath.Join(env.WorkDir, "home")
	configDir := filepath.Join(testHome, ".config", "hquery")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", configDir, err)
	}

	env.Setenv("HOME", testHome)
	env.Setenv("XDG_CONFIG_HOME", filepath.Join(testHome, ".config"))

	if binary := os.Getenv("HQUERY_BINARY"); binary != "" {
		env.Setenv("HQUERY_BINARY", binary)
	} else if binary, err := exec.LookPath("hquery"); err == nil {
		env.Setenv("HQUERY_BINARY", binary)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := fmt.Sprintf(`engine:
  default_timeout: 10s
  stream_grace: 100ms
  stop_timeout: 2s
cache:
  enabled: true
  store_policy: without_errors
catalog:
  builtin: true
  paths:
    - %s/queries.yaml
vars:
  greeting: hello
`, configDir)

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// evalCondition evaluates custom conditions for testscript.
func evalCondition(cond string) (bool, error) {
	switch cond {
	case "linux":
		return runtime.GOOS == "linux", nil
	case "darwin":
		return runtime.GOOS == "darwin", nil
	case "windows":
		return runtime.GOOS == "windows", nil
	case "arm64":
		return runtime.GOARCH == "arm64", nil
	case "amd64":
		return runtime.GOARCH == "amd64", nil
	default:
		return false, fmt.Errorf("unknown condition: %s", cond)
	}
}

// cmdSleep pauses execution for the specified number of seconds.
func cmdSleep(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("sleep does not support negation")
	}
	if len(args) < 1 {
		ts.Fatalf("usage: sleep <seconds>")
	}

	var secs float64
	if _, err := fmt.Sscanf(args[0], "%f", &secs); err != nil {
		ts.Fatalf("invalid sleep duration: %s", args[0])
	}

	time.Sleep(time.Duration(secs * float64(time.Second)))
}
