package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/config"
)

func write(t *testing.T, body string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(f, []byte(body), 0o644))
	return f
}

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load(write(t, "COUNTRY: CN\n"))
	require.NoError(t, err)
	assert.Equal(t, "cn", c.Country)
	assert.Equal(t, "en", c.Language)
	assert.Equal(t, 6*time.Hour, c.RefreshInterval)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Equal(t, 12*time.Second, c.AttemptTimeout)
	assert.Equal(t, "sqlite", c.Database.Type)
	assert.Equal(t, 20, c.WebScrape.Limit)
	require.Len(t, c.Relays, 3)
	assert.Equal(t, "corsproxy", c.Relays[0].Name)
	assert.Equal(t, "contents", c.Relays[1].Envelope)
	assert.Equal(t, "off", c.Trace)
}

func TestLoad_DurationsAndRelays(t *testing.T) {
	body := `
REFRESH_INTERVAL: 12h
CACHE_TTL: 90s
RELAYS:
  - template: "http://relay.local/?u={url}"
`
	c, err := config.Load(write(t, body))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, c.RefreshInterval)
	assert.Equal(t, 90*time.Second, c.CacheTTL)
	require.Len(t, c.Relays, 1)
	assert.Equal(t, "relay1", c.Relays[0].Name)
	assert.Equal(t, "passthrough", c.Relays[0].Envelope)
}

func TestLoad_TraceStdout(t *testing.T) {
	c, err := config.Load(write(t, "TRACE: Stdout\n"))
	require.NoError(t, err)
	assert.Equal(t, "stdout", c.Trace)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []string{
		"REFRESH_INTERVAL: 2h\n",
		"LANGUAGE: fr\n",
		"MERGE_POLICY: random\n",
		"RELAYS:\n  - template: \"http://x/\"\n",
		"DATABASE:\n  type: postgres\n",
		"TRACE: zipkin\n",
	}
	for _, body := range cases {
		_, err := config.Load(write(t, body))
		assert.Error(t, err, body)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	c, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "us", c.Country)
}
