package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/cli"
	"github.com/vk/gridplan/internal/testutil"
)

const network = `
horizon {
  durations = [1, 1]
}

element "grid" "grid" {
  import_price = [0.30, 0.10]
  export_price = 0
}

element "load" "house" {
  forecast = [1, 2]
}

connection "feed" {
  source = "grid"
  target = "house"
}
`

func TestRun_Success(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteFiles(t, map[string]string{"net/main.hcl": network})

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, logs, []string{"-log-level", "debug", filepath.Join(dir, "net")})

	require.NoError(t, err, logs.String())
	require.Contains(t, out.String(), "cycle 0: optimal objective=")
	require.Contains(t, logs.String(), "Network built.")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": "element \"grid\" {\n"})

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{filepath.Join(dir, "main.hcl")})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load network")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
