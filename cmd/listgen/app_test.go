package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jaxron/listgen/internal/config"
	"github.com/jaxron/listgen/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "listgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestURLCommand(t *testing.T) {
	t.Parallel()

	t.Run("Stock definition", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "url", "en_GB-ize")
		require.NoError(t, err)
		assert.Equal(t,
			"http://app.aspell.net/create?max_size=60&spelling=GBz&max_variant=0&diacritic=strip"+
				"&special=hacker&special=roman-numerals&download=wordlist&encoding=utf-8&format=inline\n",
			stdout)
	})

	t.Run("Unknown definition", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "url", "xx_XX")
		require.ErrorIs(t, err, query.ErrNotFound)
	})

	t.Run("Invalid values are reported", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
definitions:
  - id: odd
    spec: scowl
    assignments:
      - {name: max_size, value: "65"}
      - {name: spelling, value: US}
`)
		stdout, stderr, err := execute(t, "--config", path, "url", "odd")
		require.NoError(t, err)
		assert.Equal(t, "http://app.aspell.net/create?spelling=US\n", stdout)
		assert.Contains(t, stderr, "Dropped assignment")
	})

	t.Run("Requires one argument", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "url")
		require.Error(t, err)
	})
}

func TestListCommands(t *testing.T) {
	t.Parallel()

	t.Run("Specs", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "specs")
		require.NoError(t, err)
		assert.Contains(t, stdout, "scowl http://app.aspell.net/create\n")
		assert.Contains(t, stdout, "  spelling: {US,GBs,GBz,CA,AU}\n")
		assert.Contains(t, stdout, "  download: wordlist\n")
	})

	t.Run("Defs", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "defs")
		require.NoError(t, err)
		assert.Contains(t, stdout, "en_AU (scowl) max_size=60 spelling=AU")
		assert.Contains(t, stdout, "en_US (scowl) max_size=60 spelling=US")
	})
}

func TestFetchCommand(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, "Custom wordlist generated from http://app.aspell.net/create\n---\ncolour\nhonour\n")
	}))
	defer server.Close()

	path := writeConfig(t, fmt.Sprintf(`
http:
  rate_limit: {enabled: false}
cache:
  backend: none
specifications:
  - id: scowl
    base_url: %s/create
    constraints:
      - {name: max_size, allowed: ["60", "70"]}
      - {name: spelling, allowed: [US, GBs]}
`, server.URL))

	t.Run("Writes lines to stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", path, "--log-level", "error", "fetch", "en_GB-ise")
		require.NoError(t, err)
		assert.Equal(t, "colour\nhonour\n", stdout)
	})

	t.Run("Writes lines to a file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "words.txt")
		stdout, _, err := execute(t, "--config", path, "--log-level", "error", "fetch", "en_GB-ise", "--no-cache", "--out", out)
		require.NoError(t, err)
		assert.Empty(t, stdout)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "colour\nhonour\n", string(data))
	})

	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchCommandCache(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		fmt.Fprintf(w, "---\nword%d\n", n)
	}))
	defer server.Close()

	// Only the directory is overridden so the default cache backend is used
	path := writeConfig(t, fmt.Sprintf(`
http:
  rate_limit: {enabled: false}
cache:
  dir: %s
specifications:
  - id: scowl
    base_url: %s/create
    constraints:
      - {name: spelling, allowed: [US]}
`, t.TempDir(), server.URL))

	stdout, _, err := execute(t, "--config", path, "--log-level", "error", "fetch", "en_US")
	require.NoError(t, err)
	assert.Equal(t, "word1\n", stdout)

	stdout, _, err = execute(t, "--config", path, "--log-level", "error", "fetch", "en_US")
	require.NoError(t, err)
	assert.Equal(t, "word1\n", stdout)
	assert.Equal(t, int32(1), requests.Load())

	stdout, _, err = execute(t, "--config", path, "--log-level", "error", "fetch", "en_US", "--no-cache")
	require.NoError(t, err)
	assert.Equal(t, "word2\n", stdout)

	stdout, _, err = execute(t, "--config", path, "--log-level", "error", "fetch", "en_US")
	require.NoError(t, err)
	assert.Equal(t, "word2\n", stdout)
	assert.Equal(t, int32(2), requests.Load())
}

func TestRootFlags(t *testing.T) {
	t.Parallel()

	t.Run("Invalid log level", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--log-level", "loud", "defs")
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("Missing config file", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "defs")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Version", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "version")
		require.NoError(t, err)
		assert.Equal(t, "listgen version 0.1.0\n", stdout)
	})
}
