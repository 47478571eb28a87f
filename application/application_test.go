package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/typewire-go/pkg/metrics"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

const manifest = `formatVersion: 1.0.0
classes:
  - name: Person
    properties:
      - name: name
        type: string
      - name: role
        type: Role | null
enums:
  - name: Role
    constants: [ADMIN, USER]
`

const blobs = `formatVersion: 1.0.0
blackBoxes: [Blob]
`

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunLoadsManifests(t *testing.T) {
	dir := t.TempDir()
	api := writeFile(t, dir, "api.yaml", manifest)
	cfg := writeFile(t, dir, "config.yaml", "typewire:\n  manifests:\n    - "+api+"\n  parallelism: 2\n")

	app := New()
	require.NoError(t, app.RunArgs([]string{"--config", cfg}))
	require.NotNil(t, app.Registry())
	assert.True(t, app.Registry().Frozen())
	assert.Len(t, app.Apis(), 1)

	out, err := app.Registry().Serialize(map[string]any{"name": "ada", "role": "ADMIN"}, "Person")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada", "role": "ADMIN"}, out)
}

func TestRunRegistersMetrics(t *testing.T) {
	dir := t.TempDir()
	api := writeFile(t, dir, "api.yaml", manifest)
	cfg := writeFile(t, dir, "config.yaml", "typewire:\n  manifests: ["+api+"]\n")

	require.NoError(t, New().RunArgs([]string{"--config", cfg}))
	assert.Same(t, prometheus.DefaultRegisterer, metrics.GetRegisterer())
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "typewire_serializer_registrations_total")
	require.NoError(t, err)
	assert.Positive(t, count)

	// 再次启动不会重复注册。
	require.NoError(t, New().RunArgs([]string{"--config", cfg}))
}

func TestConfigPathPriority(t *testing.T) {
	dir := t.TempDir()
	envCfg := writeFile(t, dir, "env.yaml", "typewire:\n  strict: false\n")
	flagCfg := writeFile(t, dir, "flag.yaml", "typewire:\n  strict: true\n")

	t.Setenv(envConfigPath, envCfg)
	app := New()
	require.NoError(t, app.RunArgs(nil))
	assert.False(t, app.Config().GetBool(KeyStrict))

	app = New()
	require.NoError(t, app.RunArgs([]string{"--config=" + flagCfg}))
	assert.True(t, app.Config().GetBool(KeyStrict))

	assert.ErrorIs(t, New().RunArgs([]string{"--config"}), merr.ErrParameterInvalid)
	assert.Error(t, New().RunArgs([]string{"--config", filepath.Join(dir, "missing.yaml")}))
}

func TestMissingDefaultConfigIsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	app := New()
	require.NoError(t, app.RunArgs(nil))
	assert.True(t, app.Config().GetBool(KeyStrict))
	assert.Empty(t, app.Apis())
}

func TestMultipleManifests(t *testing.T) {
	dir := t.TempDir()
	api := writeFile(t, dir, "api.yaml", manifest)
	team := writeFile(t, dir, "team.yaml", blobs+`classes:
  - name: Team
    properties:
      - name: lead
        type: Blob
`)
	cfg := writeFile(t, dir, "config.yaml", "typewire:\n  manifests: ["+api+", "+team+"]\n")

	app := New()
	require.NoError(t, app.RunArgs([]string{"--config", cfg}))
	assert.Len(t, app.Apis(), 2)

	blob := []byte("raw")
	out, err := app.Registry().Serialize(map[string]any{"lead": blob}, "Team")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lead": blob}, out)
}

func TestInvalidManifestFailsStartup(t *testing.T) {
	dir := t.TempDir()
	api := writeFile(t, dir, "api.yaml", "formatVersion: 2.0.0\n")
	cfg := writeFile(t, dir, "config.yaml", "typewire:\n  manifests: ["+api+"]\n")
	assert.ErrorIs(t, New().RunArgs([]string{"--config", cfg}), merr.ErrManifestVersion)
}

func TestManifestLoadRetry(t *testing.T) {
	dir := t.TempDir()
	api := filepath.Join(dir, "late.yaml")
	cfg := writeFile(t, dir, "config.yaml", "typewire:\n  manifests: ["+api+"]\n  load:\n    attempts: 50\n    interval: 10ms\n")

	go func() {
		time.Sleep(30 * time.Millisecond)
		tmp := api + ".tmp"
		_ = os.WriteFile(tmp, []byte(manifest), 0o644)
		_ = os.Rename(tmp, api)
	}()
	app := New()
	require.NoError(t, app.RunArgs([]string{"--config", cfg}))
	assert.Len(t, app.Apis(), 1)

	cfg = writeFile(t, dir, "config2.yaml", "typewire:\n  manifests: ["+filepath.Join(dir, "never.yaml")+"]\n  load:\n    attempts: 2\n    interval: 1ms\n")
	assert.ErrorIs(t, New().RunArgs([]string{"--config", cfg}), os.ErrNotExist)
}

func TestModuleLoggers(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", `logging:
  verify:
    level: debug
    format: json
    file:
      rootpath: `+dir+`
      filename: verify.log
`)
	app := New()
	require.NoError(t, app.RunArgs([]string{"--config", cfg}))
	lg := app.Logger("verify")
	require.NotNil(t, lg)
	lg.Info("hello")
	assert.NotSame(t, lg, app.Logger("verify-missing"))
}

func TestGetenv(t *testing.T) {
	t.Setenv("TYPEWIRE_TEST_BOOL", "yes")
	assert.True(t, getenvBool("TYPEWIRE_TEST_BOOL", false))
	t.Setenv("TYPEWIRE_TEST_BOOL", "maybe")
	assert.True(t, getenvBool("TYPEWIRE_TEST_BOOL", true))
	assert.Equal(t, "d", getenvDefault("TYPEWIRE_TEST_UNSET", "d"))
}
