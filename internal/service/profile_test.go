package service

import (
	"path/filepath"
	"testing"

	"github.com/pokerjest/aria2deck/internal/db"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ProfileStore {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewProfileStore(conn)
}

func TestProfileRoundTrip(t *testing.T) {
	ep := downloader.Endpoint{Address: "nas.local", Port: 6800, Token: "t", HTTPS: true}
	opts := session.Options{Dir: "/dl", MaxConcurrentDownloads: 3, MaxOverallUploadLimit: 1024}

	name, gotEp, gotOpts := FromProfile(ToProfile("nas", ep, opts))
	assert.Equal(t, "nas", name)
	assert.Equal(t, ep, gotEp)
	assert.Equal(t, opts, gotOpts)
}

func TestProfileStore_SaveUpserts(t *testing.T) {
	store := newStore(t)

	p := ToProfile("nas", downloader.DefaultEndpoint(), session.DefaultOptions())
	require.NoError(t, store.Save(&p))

	updated := ToProfile("nas", downloader.Endpoint{Address: "10.0.0.5", Port: 6801}, session.DefaultOptions())
	require.NoError(t, store.Save(&updated))

	other := ToProfile("laptop", downloader.DefaultEndpoint(), session.DefaultOptions())
	require.NoError(t, store.Save(&other))

	profiles, err := store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "laptop", profiles[0].Name)
	assert.Equal(t, "nas", profiles[1].Name)
	assert.Equal(t, "10.0.0.5", profiles[1].Address)
	assert.Equal(t, 6801, profiles[1].Port)

	empty := ToProfile("", downloader.DefaultEndpoint(), session.DefaultOptions())
	assert.Error(t, store.Save(&empty))
}

func TestProfileStore_Active(t *testing.T) {
	store := newStore(t)

	_, err := store.Active()
	assert.ErrorIs(t, err, ErrNoActiveProfile)

	assert.Error(t, store.Activate("missing"))

	p := ToProfile("nas", downloader.DefaultEndpoint(), session.Options{Dir: "/dl"})
	require.NoError(t, store.Save(&p))
	require.NoError(t, store.Activate("nas"))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Equal(t, "nas", active.Name)
	assert.Equal(t, "/dl", active.Dir)

	require.NoError(t, store.Delete("nas"))
	_, err = store.Active()
	assert.ErrorIs(t, err, ErrNoActiveProfile)
}
