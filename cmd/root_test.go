package cmd

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"s3transfer/config"
)

// executeCommand runs the root command with args against a test config and
// returns what it printed to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	oldCfg := cfg
	cfg = &config.Config{BucketName: "test-bucket", Region: "us-east-1", MaxWorkers: 2, BufferSize: 1024, PartNaming: "none"}
	defer func() { cfg = oldCfg }()

	return captureStdout(t, func() error {
		rootCmd.SetArgs(args)
		return rootCmd.Execute()
	})
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = oldStdout
	return <-done, fnErr
}

func TestRootRegistersCommands(t *testing.T) {
	for _, name := range []string{"upload", "download", "cleanup-parts"} {
		found, _, err := rootCmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}

func TestGetBucketName(t *testing.T) {
	oldCfg := cfg
	cfg = &config.Config{BucketName: "from-config"}
	defer func() { cfg = oldCfg }()

	if got := getBucketName(uploadCmd); got != "from-config" {
		t.Errorf("getBucketName() = %s, want from-config", got)
	}
}

func TestFailReturnsErrFailed(t *testing.T) {
	oldStdout := os.Stdout
	_, w, _ := os.Pipe()
	os.Stdout = w
	defer func() {
		w.Close()
		os.Stdout = oldStdout
	}()

	if err := fail(errors.New("boom"), "test"); !errors.Is(err, ErrFailed) {
		t.Errorf("fail() = %v, want ErrFailed", err)
	}
}
