package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
typewire:
  strict: true
  manifests:
    - a.yaml
    - b.json
  parallelism: 4
  timeout: 3s
logging:
  verify:
    level: debug
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.LoadFile(writeFile(t, "config.yaml", sample)))

	assert.True(t, cfg.GetBool("typewire.strict"))
	assert.Equal(t, []string{"a.yaml", "b.json"}, cfg.GetStringSlice("typewire.manifests"))
	assert.Equal(t, 4, cfg.GetInt("typewire.parallelism"))
	assert.Equal(t, 3*time.Second, cfg.GetDuration("typewire.timeout"))
	assert.False(t, cfg.IsSet("typewire.missing"))

	raw := map[string]map[string]string{}
	require.NoError(t, cfg.UnmarshalKey("logging", &raw))
	assert.Equal(t, "debug", raw["verify"]["level"])
}

func TestLoadJSON(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.LoadFile(writeFile(t, "config.JSON", `{"typewire":{"strict":false}}`)))
	assert.True(t, cfg.IsSet("typewire.strict"))
	assert.False(t, cfg.GetBool("typewire.strict"))

	var all struct {
		Typewire struct {
			Strict bool
		}
	}
	require.NoError(t, cfg.Unmarshal(&all))
	assert.False(t, all.Typewire.Strict)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TYPEWIRE_TYPEWIRE_STRICT", "false")
	t.Setenv("TYPEWIRE_TYPEWIRE_MANIFESTS", "x.yaml, y.yaml")

	cfg := New()
	require.NoError(t, cfg.LoadFile(writeFile(t, "config.yml", sample)))
	assert.False(t, cfg.GetBool("typewire.strict"))
	assert.Equal(t, []string{"x.yaml", "y.yaml"}, cfg.GetStringSlice("typewire.manifests"))
}

func TestDefaultsAndSet(t *testing.T) {
	cfg := New()
	cfg.SetDefault("typewire.parallelism", 8)
	assert.Equal(t, 8, cfg.GetInt("typewire.parallelism"))
	cfg.Set("typewire.parallelism", 2)
	assert.Equal(t, 2, cfg.GetInt("typewire.parallelism"))
	assert.Equal(t, "", cfg.GetString("typewire.none"))
}

func TestLoadMissing(t *testing.T) {
	assert.Error(t, New().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
