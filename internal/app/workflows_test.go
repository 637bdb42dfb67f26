package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"
	"github.com/kadirbelkuyu/oracle2pg/internal/profiles"
)

func TestListProfiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	service := NewService(&out)

	require.NoError(t, service.ListProfiles(dir))
	assert.Equal(t, "No saved profiles in "+dir+"\n", out.String())

	cfg := config.Default()
	cfg.Source.Owner = "HR"
	_, err := profiles.NewManager(dir).Save("hr-nightly", cfg)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, service.ListProfiles(dir))
	assert.Contains(t, out.String(), "1. hr-nightly (owner HR, target localhost:5432/postgres, saved ")
}

func TestLoadAndDeleteProfile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	service := NewService(&out)

	cfg := config.Default()
	cfg.Source.Owner = "HR"
	cfg.Source.Password = "pa$$w0rd"
	_, err := profiles.NewManager(dir).Save("hr-nightly", cfg)
	require.NoError(t, err)

	loaded, err := service.LoadProfile(dir, "hr-nightly")
	require.NoError(t, err)
	assert.Equal(t, "HR", loaded.Source.Owner)
	assert.Equal(t, "pa$$w0rd", loaded.Source.Password)

	require.NoError(t, service.DeleteProfile(dir, "hr-nightly"))
	assert.Equal(t, "Deleted profile hr-nightly\n", out.String())
	assert.NoFileExists(t, filepath.Join(dir, "hr-nightly.yaml"))

	_, err = service.LoadProfile(dir, "hr-nightly")
	assert.ErrorContains(t, err, "failed to load profile hr-nightly")
	assert.ErrorContains(t, service.DeleteProfile(dir, "hr-nightly"), "profile not found")
}

func TestOpenLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	log, closeLog, err := openLogger(path, false)
	require.NoError(t, err)
	log.Info("Worker #0: Start")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Worker #0: Start")
}

func TestOpenLoggerFailsForMissingDirectory(t *testing.T) {
	_, _, err := openLogger(filepath.Join(t.TempDir(), "missing", "run.log"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestShortChecksum(t *testing.T) {
	assert.Equal(t, "abc", shortChecksum("abc"))
	assert.Equal(t, "0123456789abcdef...", shortChecksum("0123456789abcdef0123"))
	assert.Equal(t, "n/a", displayValue(shortChecksum(""), "n/a"))
}
