package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"gradebook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db
grading:
  pass_threshold: 35
events:
  driver: nats
  nats:
    url: nats://broker:4222
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 35.0, cfg.Grading.Policy().Threshold())
	assert.Equal(t, "nats://broker:4222", cfg.Events.NATS.URL)
	assert.Equal(t, "gradebook.marks.ingest", cfg.Events.NATS.IngestSubject)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: postgres\n")
	t.Setenv("DB_USER", "grader")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("GRADING_PASS_THRESHOLD", "45")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "grader", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 45.0, cfg.Grading.PassThreshold)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"UnknownDriver", "database:\n  driver: mysql\n"},
		{"ThresholdTooLow", "grading:\n  pass_threshold: 20\n"},
		{"ThresholdTooHigh", "grading:\n  pass_threshold: 55\n"},
		{"UnknownEvents", "events:\n  driver: rabbit\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFile(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoad_LocalDefaults(t *testing.T) {
	t.Setenv("ENV", "missing-env")
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "missing-env", cfg.Env)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, 40.0, cfg.Grading.PassThreshold)
}

func TestLoadCLI(t *testing.T) {
	t.Setenv("GRADEBOOK_DATABASE_PATH", "/tmp/grades.db")
	t.Setenv("GRADEBOOK_PASS_THRESHOLD", "33")
	t.Setenv("GRADEBOOK_TOP_LIMIT", "5")

	cfg, err := config.LoadCLI()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database().Driver)
	assert.Equal(t, "/tmp/grades.db", cfg.Database().Path)
	assert.Equal(t, 33.0, cfg.PassThreshold)
	assert.Equal(t, 5, cfg.TopLimit)

	t.Setenv("GRADEBOOK_PASS_THRESHOLD", "70")
	_, err = config.LoadCLI()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
