package audit

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorderWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	rec, err := NewFileRecorder(FileRecorderConfig{Path: path})
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, NewEvent("u1", "admin", "create", "customer", "c1", StatusSuccess)))
	require.NoError(t, rec.Record(ctx, NewEvent("u2", "client", "update", "vehicle", "v1", StatusFailure)))
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []*Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e, err := FromJSON(scanner.Bytes())
		require.NoError(t, err)
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].ActorID)
	assert.Equal(t, StatusFailure, events[1].Status)
}

func TestFileRecorderRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	rec, err := NewFileRecorder(FileRecorderConfig{Path: path, MaxSizeMB: 1})
	require.NoError(t, err)
	defer rec.Close()

	// Force the threshold low so a second write triggers rotation.
	rec.maxSize = 64

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, NewEvent("u1", "admin", "create", "customer", "c1", StatusSuccess)))
	require.NoError(t, rec.Record(ctx, NewEvent("u1", "admin", "create", "customer", "c2", StatusSuccess)))
	require.NoError(t, rec.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2, "expected rotated file alongside the active log")
}

func TestFileRecorderRequiresPath(t *testing.T) {
	_, err := NewFileRecorder(FileRecorderConfig{})
	assert.Error(t, err)
}
