package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"sse", "port", "env-file"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	sse, err := cmd.Flags().GetBool("sse")
	require.NoError(t, err)
	assert.False(t, sse, "stdio is the default transport")
}

func TestInvalidPortFlag(t *testing.T) {
	for _, v := range []string{"PORT", "TMDB_TIMEOUT", "TLS_CERT_FILE", "TLS_KEY_FILE"} {
		t.Setenv(v, "")
	}
	err := execute(t, "--sse", "--port", "not-a-port")
	assert.EqualError(t, err, `invalid port "not-a-port"`)
}

func TestMissingEnvFile(t *testing.T) {
	err := execute(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorContains(t, err, "load env file")
}

func TestRejectsPositionalArgs(t *testing.T) {
	assert.Error(t, execute(t, "serve"))
}
