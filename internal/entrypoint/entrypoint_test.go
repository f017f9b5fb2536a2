package entrypoint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/config"
)

func TestSessionSecret(t *testing.T) {
	t.Run("hex secret is decoded", func(t *testing.T) {
		hexSecret := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
		secret, err := sessionSecret(hexSecret)
		require.NoError(t, err)
		assert.Len(t, secret, 32)
		assert.Equal(t, byte(0x1f), secret[31])
	})

	t.Run("plain secret is used as bytes", func(t *testing.T) {
		secret, err := sessionSecret("not hex at all")
		require.NoError(t, err)
		assert.Equal(t, []byte("not hex at all"), secret)
	})

	t.Run("empty secret is generated", func(t *testing.T) {
		a, err := sessionSecret("")
		require.NoError(t, err)
		b, err := sessionSecret("")
		require.NoError(t, err)
		assert.Len(t, a, 32)
		assert.NotEqual(t, a, b)
	})
}

func TestUIFilesystems(t *testing.T) {
	t.Run("embedded by default", func(t *testing.T) {
		templates, static := uiFilesystems(config.UI{})
		_, err := fs.Stat(templates, "catalog.html")
		assert.NoError(t, err)
		_, err = fs.Stat(static, "style.css")
		assert.NoError(t, err)
	})

	t.Run("directory override", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.html"), []byte("x"), 0o644))

		templates, _ := uiFilesystems(config.UI{TemplatesPath: dir})
		_, err := fs.Stat(templates, "custom.html")
		assert.NoError(t, err)
		_, err = fs.Stat(templates, "catalog.html")
		assert.Error(t, err)
	})
}

type fakeResetCleaner struct{ calls int }

func (f *fakeResetCleaner) DeleteExpiredResetTokens() (int64, error) {
	f.calls++
	return 2, nil
}

type fakeNotificationCleaner struct {
	age time.Duration
	err error
}

func (f *fakeNotificationCleaner) DeleteReadOlderThan(age time.Duration) (int64, error) {
	f.age = age
	return 0, f.err
}

func TestMaintenanceJobs_Inline(t *testing.T) {
	cfg := &config.Config{Notifications: config.Notifications{RetentionDays: 7}}
	resets := &fakeResetCleaner{}
	notes := &fakeNotificationCleaner{}

	jobs := maintenanceJobs(cfg, nil, resets, notes)
	require.Len(t, jobs, 2)

	for _, job := range jobs {
		require.NoError(t, job.Run(context.Background()), job.Name)
	}
	assert.Equal(t, 1, resets.calls)
	assert.Equal(t, 7*24*time.Hour, notes.age)
}

func TestMaintenanceJobs_InlineErrorPropagates(t *testing.T) {
	cfg := &config.Config{Notifications: config.Notifications{RetentionDays: 1}}
	notes := &fakeNotificationCleaner{err: errors.New("disk full")}

	jobs := maintenanceJobs(cfg, nil, &fakeResetCleaner{}, notes)
	assert.EqualError(t, jobs[1].Run(context.Background()), "disk full")
}

func TestMaintenanceJobs_ZeroRetentionKeepsNotifications(t *testing.T) {
	cfg := &config.Config{}
	notes := &fakeNotificationCleaner{}

	jobs := maintenanceJobs(cfg, nil, &fakeResetCleaner{}, notes)
	require.NoError(t, jobs[1].Run(context.Background()))
	assert.Zero(t, notes.age)
}
