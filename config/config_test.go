package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.Http.Port)
	assert.Equal(t, 30*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "model.json", cfg.Artifacts.ModelPath)
	assert.Equal(t, "scaler.json", cfg.Artifacts.ScalerPath)
	assert.True(t, *cfg.Artifacts.Watch)
	assert.Equal(t, ml.VariantExtended, cfg.Form.Variant)
	assert.Equal(t, "sidebar", cfg.Form.Layout)
	assert.True(t, *cfg.Labels.Decode)
	assert.Equal(t, ml.DefaultFailureLabels(), cfg.Labels.Names)
	assert.Equal(t, "", cfg.History.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadBasicVariant(t *testing.T) {
	path := writeConfig(t, `
form:
  variant: basic
artifacts:
  model_path: models/model.json
  watch: false
cache:
  size: 64
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ml.VariantBasic, cfg.Form.Variant)
	assert.Equal(t, "main", cfg.Form.Layout)
	assert.False(t, *cfg.Labels.Decode)
	assert.False(t, *cfg.Artifacts.Watch)
	assert.Equal(t, "models/model.json", cfg.Artifacts.ModelPath)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, 5, cfg.Schema().Len())
	assert.Equal(t, "3", cfg.LabelTable().Resolve(3))
}

func TestLoadCustomLabels(t *testing.T) {
	path := writeConfig(t, `
labels:
  decode: true
  names:
    0: Healthy
    1: Worn
http:
  timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	table := cfg.LabelTable()
	assert.Equal(t, "Healthy", table.Resolve(0))
	assert.Equal(t, "Worn", table.Resolve(1))
	assert.Equal(t, ml.UnknownLabel, table.Resolve(2))
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"variant":   "form:\n  variant: wide\n",
		"layout":    "form:\n  layout: footer\n",
		"port":      "http:\n  port: 70000\n",
		"format":    "log:\n  format: xml\n",
		"unknown":   "colour: blue\n",
		"malformed": "http: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPathHonorsEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/mfp/config.yaml")
	assert.Equal(t, "/etc/mfp/config.yaml", Path())

	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, Path())
}

func TestLoggingSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n  file: /var/log/mfp.log\n  compress: true\n"))
	require.NoError(t, err)

	lc := cfg.Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "/var/log/mfp.log", lc.File)
	assert.Equal(t, 100, lc.MaxSizeMB)
	assert.True(t, lc.Compress)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, ml.DefaultFailureLabels(), cfg.Labels.Names)
}
