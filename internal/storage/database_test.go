package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/forecast"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "data", "darksky.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := newTestDatabase(t)

	p := alert.NewProfile("42", "galaxies", "AlbanyNY")
	p.SetDuration(3)
	p.Add(alert.MaxCloudCover(10))
	p.Add(alert.WorstTransparency(forecast.AboveAverage))
	p.Add(alert.MaxWind(11))
	p.Add(alert.TemperatureRange(23, 68))
	require.NoError(t, db.SaveProfile(p))

	got, err := db.LoadProfile("42", "galaxies")
	require.NoError(t, err)
	assert.Equal(t, "AlbanyNY", got.Location)
	assert.Equal(t, 3, got.MinDuration)
	assert.Equal(t, p.Thresholds(), got.Thresholds())
}

func TestSaveReplacesExisting(t *testing.T) {
	db := newTestDatabase(t)

	p := alert.NewProfile("42", "galaxies", "AlbanyNY")
	p.Add(alert.MaxCloudCover(10))
	require.NoError(t, db.SaveProfile(p))

	p.Remove(forecast.CloudCover)
	p.Add(alert.MinSeeing(0.8))
	p.Location = "TroyNY"
	require.NoError(t, db.SaveProfile(p))

	got, err := db.LoadProfile("42", "galaxies")
	require.NoError(t, err)
	assert.Equal(t, "TroyNY", got.Location)
	_, ok := got.Get(forecast.CloudCover)
	assert.False(t, ok)
	_, ok = got.Get(forecast.Seeing)
	assert.True(t, ok)

	all, err := db.ListAllProfiles()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoadMissingProfile(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.LoadProfile("42", "nothing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDeleteProfile(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SaveProfile(alert.NewProfile("42", "galaxies", "AlbanyNY")))

	deleted, err := db.DeleteProfile("42", "galaxies")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteProfile("42", "galaxies")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = db.LoadProfile("42", "galaxies")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestListProfilesByOwner(t *testing.T) {
	db := newTestDatabase(t)
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, db.SaveProfile(alert.NewProfile("42", name, "AlbanyNY")))
	}
	// an owner whose id shares a prefix must not leak in
	require.NoError(t, db.SaveProfile(alert.NewProfile("421", "x", "AlbanyNY")))
	require.NoError(t, db.SaveProfile(alert.NewProfile("7", "y", "AlbanyNY")))

	mine, err := db.ListProfiles("42")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, "a", mine[0].Name)
	for _, p := range mine {
		assert.Equal(t, "42", p.Owner)
	}

	none, err := db.ListProfiles("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := db.ListAllProfiles()
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
