package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/act-global/loom/internal/storage/sqlite"
	"github.com/act-global/loom/pkg/types"
)

func TestPrintStats_ListsStoredEpisodes(t *testing.T) {
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "loom.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	started := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertEpisode(ctx, &types.Episode{
		ID: "ep1", Title: "ACT-1: empathy-ledger (March 2026)", Summary: "Meetings: Kickoff",
		EpisodeType: types.EpisodeProjectPhase, ProjectCode: "ACT-1",
		StartedAt: started, EndedAt: started.AddDate(0, 0, 5),
		Status: types.EpisodeCompleted, CreatedAt: started,
	}))
	require.NoError(t, store.InsertEpisode(ctx, &types.Episode{
		ID: "ep2", Title: "ACT-2: Decision Phase (April 2026)", Summary: "Decisions: Vendor choice",
		EpisodeType: types.EpisodeDecisionSequence, ProjectCode: "ACT-2",
		StartedAt: started.AddDate(0, 1, 0), EndedAt: started.AddDate(0, 1, 3),
		Status: types.EpisodeActive, CreatedAt: started,
	}))

	var buf bytes.Buffer
	require.NoError(t, printStats(ctx, &buf, store))

	out := buf.String()
	assert.Contains(t, out, "Episodes stored:  2")
	assert.Contains(t, out, "[ACT-1] ACT-1: empathy-ledger (March 2026) (2026-03-02 to 2026-03-07, completed)")
	assert.Contains(t, out, "[ACT-2] ACT-2: Decision Phase (April 2026) (2026-04-02 to 2026-04-05, active)")
	assert.Contains(t, out, "Pending matches:  0")
}

func TestPrintStats_EmptyStore(t *testing.T) {
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "loom.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var buf bytes.Buffer
	require.NoError(t, printStats(context.Background(), &buf, store))

	out := buf.String()
	assert.Contains(t, out, "Episodes stored:  0")
	assert.Contains(t, out, "Pending matches:  0")
}
