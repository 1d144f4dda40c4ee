package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolveCmd(t *testing.T) {
	out, err := execute(t, "resolve", "JAN", "fr")
	require.NoError(t, err)
	assert.Equal(t, "JANV\n", out)

	out, err = execute(t, "resolve", "Mon", "de-AT")
	require.NoError(t, err)
	assert.Equal(t, "Mo\n", out)
}

func TestResolveCmd_Miss(t *testing.T) {
	_, err := execute(t, "resolve", "Welcome", "fr")
	assert.EqualError(t, err, `no dictionary entry for "Welcome" in fr`)
}

func TestResolveCmd_Args(t *testing.T) {
	_, err := execute(t, "resolve", "JAN")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "translation-proxy version dev")
}

func TestRootHelp_ConfigFormats(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "TOML")
	assert.NotContains(t, out, "optional YAML file")
}
