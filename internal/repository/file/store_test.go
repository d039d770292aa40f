package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprint(t *testing.T, user string) state.Fingerprint {
	t.Helper()
	fp, err := state.NewFingerprint(state.Identity{
		Target: activity.Target{Kind: activity.KindUser, User: user},
	})
	require.NoError(t, err)
	return fp
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	fp := fingerprint(t, "octo")
	want := state.State{LastEventID: 54321, Validator: "ETAG", PollIntervalMillis: 1234}
	require.NoError(t, s.Save(ctx, fp, want))

	got, ok, err := s.Load(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_OtherFingerprintSeesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, fingerprint(t, "octo"), state.State{LastEventID: 9}))

	_, ok, err := s.Load(ctx, fingerprint(t, "hubot"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	fp := fingerprint(t, "octo")
	require.NoError(t, s.Save(ctx, fp, state.State{LastEventID: 1}))
	require.NoError(t, s.Save(ctx, fp, state.State{LastEventID: 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(fp)+".json", entries[0].Name())

	got, _, err := s.Load(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.LastEventID)
}

func TestStore_ReadsLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	fp := fingerprint(t, "octo")
	legacy := `{"etag":"W/\"abc\"","lastEvent":77,"poll":60000}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(fp)+".json"), []byte(legacy), 0o644))

	got, ok, err := s.Load(context.Background(), fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.State{LastEventID: 77, Validator: `W/"abc"`, PollIntervalMillis: 60000}, got)
}

func TestStore_CorruptFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	fp := fingerprint(t, "octo")
	require.NoError(t, os.WriteFile(s.Path(fp), []byte("{not json"), 0o644))

	_, ok, err := s.Load(context.Background(), fp)
	require.ErrorIs(t, err, state.ErrPersistence)
	assert.False(t, ok)
}
