package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anoideaopen/proxymanager/core/config"
	"github.com/anoideaopen/proxymanager/core/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCmd(context.Background(), stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

func TestSampleThenInspect(t *testing.T) {
	for _, format := range []string{"json", "cbor"} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "ledger."+format)

			_, _, err := runCLI(t, "sample", "--format", format, "--out", out, "--amount", "10,5000,25")
			require.NoError(t, err)

			stdout, _, err := runCLI(t, "inspect", "-o", "json", out)
			require.NoError(t, err)

			var got struct {
				Format   string         `json:"format"`
				Envelope proxy.Envelope `json:"envelope"`
			}
			require.NoError(t, json.Unmarshal([]byte(stdout), &got))
			assert.Equal(t, format, got.Format)
			assert.Equal(t, proxy.EnvelopeVersion, got.Envelope.Version)
			assert.Equal(t, map[string]string{"Record": "reject-large"}, got.Envelope.Prefix)
			assert.JSONEq(t, "35", string(got.Envelope.Instance.Fields["Total"]))
			assert.JSONEq(t, "[10,25]", string(got.Envelope.Instance.Fields["Entries"]))
		})
	}
}

func TestSampleToStdout(t *testing.T) {
	stdout, _, err := runCLI(t, "sample", "--amount", "7")
	require.NoError(t, err)

	env, format, err := proxy.DecodeEnvelope([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, proxy.FormatJSON, format)
	assert.JSONEq(t, "7", string(env.Instance.Fields["Total"]))
}

func TestInspectYAML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ledger.json")
	_, _, err := runCLI(t, "sample", "--out", out)
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "inspect", out)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &parsed))
	assert.Equal(t, "json", parsed["format"])
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9}`), 0o600))

	_, _, err := runCLI(t, "inspect", path)
	require.ErrorIs(t, err, proxy.ErrUnsupportedVersion)

	_, _, err = runCLI(t, "inspect", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestSampleRejectsUnknownFormat(t *testing.T) {
	_, _, err := runCLI(t, "sample", "--format", "xml")
	require.ErrorIs(t, err, proxy.ErrUnknownFormat)
}

func TestConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxymanager.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = "debug"
format = "json"

[naming]
strategy = "ulid"
prefix = "Ledger"
`), 0o600))

	stdout, _, err := runCLI(t, "--config", path, "config", "-o", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, config.FormatJSON, cfg.Logging.Format)
	assert.Equal(t, config.NamingULID, cfg.Naming.Strategy)
	assert.Equal(t, "Ledger", cfg.Naming.Prefix)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(config.EnvNamingStrategy, config.NamingDigest)

	stdout, _, err := runCLI(t, "config")
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, config.NamingDigest, cfg["naming"].(map[string]any)["strategy"]) //nolint:forcetypeassert
}

func TestUnknownOutput(t *testing.T) {
	_, _, err := runCLI(t, "config", "-o", "xml")
	require.ErrorIs(t, err, ErrUnknownOutput)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "proxymanager "))
}

func TestShutdownErrorIsReturned(t *testing.T) {
	errFlush := errors.New("collector unreachable")
	failing := func(context.Context) error { return errFlush }

	var err error
	joinShutdown(context.Background(), failing, &err)
	require.ErrorIs(t, err, errFlush)
	require.ErrorContains(t, err, "flushing traces")

	err = proxy.ErrUnknownFormat
	joinShutdown(context.Background(), failing, &err)
	require.ErrorIs(t, err, proxy.ErrUnknownFormat)
	require.ErrorIs(t, err, errFlush)

	err = nil
	joinShutdown(context.Background(), func(context.Context) error { return nil }, &err)
	require.NoError(t, err)
}
