package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// fakeEntityStore serves a fixed entity list and canned similarity results.
type fakeEntityStore struct {
	entities   []types.CanonicalEntity
	candidates map[string][]storage.DuplicateCandidate
	listErr    error
	findErr    error
	findCalls  int
}

func (f *fakeEntityStore) ListEntities(ctx context.Context, entityType string) ([]types.CanonicalEntity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []types.CanonicalEntity
	for _, e := range f.entities {
		if e.EntityType == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntityStore) FindPotentialDuplicates(ctx context.Context, entityID string, threshold float64) ([]storage.DuplicateCandidate, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []storage.DuplicateCandidate
	for _, c := range f.candidates[entityID] {
		if c.MatchScore >= threshold {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeMatchStore records inserts and enforces pair uniqueness like the real
// backends do.
type fakeMatchStore struct {
	inserted  []types.PotentialMatch
	keys      map[string]bool
	insertErr error
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{keys: make(map[string]bool)}
}

func (f *fakeMatchStore) InsertPotentialMatch(ctx context.Context, m *types.PotentialMatch) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if m.EntityAID >= m.EntityBID {
		return storage.ErrInvalidInput
	}
	key := m.EntityAID + "|" + m.EntityBID
	if f.keys[key] {
		return storage.ErrConflict
	}
	f.keys[key] = true
	f.inserted = append(f.inserted, *m)
	return nil
}

func (f *fakeMatchStore) CountPendingMatches(ctx context.Context) (int, error) {
	return len(f.inserted), nil
}

func person(id, name, email, company string) types.CanonicalEntity {
	return types.CanonicalEntity{
		ID:               id,
		EntityType:       types.EntityTypePerson,
		CanonicalName:    name,
		CanonicalEmail:   email,
		CanonicalCompany: company,
	}
}

func TestDetectorRun_NamePhaseRecordsShortFormPair(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "", ""),
		person("e2", "Benjamin Knight", "", ""),
	}}
	matches := newFakeMatchStore()

	// Name alone scores 0.40, so the threshold must sit below that.
	d := NewDetector(entities, matches, Options{Threshold: 0.3, RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Entities)
	assert.Equal(t, 1, rep.Inserted)
	assert.Equal(t, 0, rep.Skipped)
	assert.Equal(t, 0, rep.Errors)
	assert.Equal(t, 1, rep.PendingTotal)

	require.Len(t, matches.inserted, 1)
	m := matches.inserted[0]
	assert.Equal(t, "e1", m.EntityAID)
	assert.Equal(t, "e2", m.EntityBID)
	assert.InDelta(t, 0.40, m.MatchScore, 1e-9)
	assert.True(t, m.MatchReasons.NameSubstring)
	assert.Equal(t, types.MatchPending, m.Status)
	assert.NotEmpty(t, m.ID)
}

func TestDetectorRun_DefaultThresholdFiltersNameOnlyPair(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "", ""),
		person("e2", "Benjamin Knight", "", ""),
	}}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{Threshold: DefaultThreshold, RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	// 0.40 < DefaultThreshold, so the pair never reaches the store.
	assert.Equal(t, 0, rep.Inserted)
	assert.Empty(t, matches.inserted)
}

func TestDetectorRun_ZeroThresholdIsHonored(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "", ""),
		person("e2", "Benjamin Knight", "", ""),
	}}
	matches := newFakeMatchStore()

	// Zero is a legitimate threshold, not a request for the default: the
	// 0.40 name-only pair must be recorded.
	d := NewDetector(entities, matches, Options{Threshold: 0, RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Inserted)
	require.Len(t, matches.inserted, 1)
	assert.InDelta(t, 0.40, matches.inserted[0].MatchScore, 1e-9)
}

func TestDetectorRun_NegativeThresholdFallsBackToDefault(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "", ""),
		person("e2", "Benjamin Knight", "", ""),
	}}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{Threshold: -1, RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Inserted)
	assert.Empty(t, matches.inserted)
}

func TestDetectorRun_SharedEmailClearsDefaultThreshold(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "ben@example.org", ""),
		person("e2", "Benjamin Knight", "ben@example.org", ""),
	}}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Inserted)
	require.Len(t, matches.inserted, 1)
	m := matches.inserted[0]
	assert.InDelta(t, 0.80, m.MatchScore, 1e-9)
	assert.True(t, m.MatchReasons.NameSubstring)
	assert.True(t, m.MatchReasons.SameEmail)
}

func TestDetectorRun_SecondRunSkipsExistingPairs(t *testing.T) {
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "ben@example.org", ""),
		person("e2", "Benjamin Knight", "ben@example.org", ""),
	}}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Inserted)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 0, rep.Errors)
	assert.Len(t, matches.inserted, 1, "backlog must not grow across reruns")
}

func TestDetectorRun_SimilarityPhaseUsesStoreCandidates(t *testing.T) {
	entities := &fakeEntityStore{
		entities: []types.CanonicalEntity{
			person("e1", "Alice Wong", "", ""),
			person("e2", "Alice Wong-Smith", "", ""),
		},
		candidates: map[string][]storage.DuplicateCandidate{
			"e1": {{CandidateID: "e2", MatchScore: 0.9, MatchReasons: types.MatchReasons{SameEmail: true}}},
			"e2": {{CandidateID: "e1", MatchScore: 0.9, MatchReasons: types.MatchReasons{SameEmail: true}}},
		},
	}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	// Each direction reports the same pair; only one row lands.
	assert.Equal(t, 1, rep.Inserted)
	assert.Equal(t, 0, rep.Skipped)
	require.Len(t, matches.inserted, 1)
	assert.Equal(t, "e1", matches.inserted[0].EntityAID)
	assert.Equal(t, "e2", matches.inserted[0].EntityBID)
	assert.Equal(t, 2, entities.findCalls)
}

func TestDetectorRun_PairSeenInBothPhasesCountsOnce(t *testing.T) {
	entities := &fakeEntityStore{
		entities: []types.CanonicalEntity{
			person("e1", "Ben Knight", "ben@example.org", ""),
			person("e2", "Benjamin Knight", "ben@example.org", ""),
		},
		candidates: map[string][]storage.DuplicateCandidate{
			"e1": {{CandidateID: "e2", MatchScore: 0.9, MatchReasons: types.MatchReasons{SameEmail: true}}},
		},
	}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Candidates)
	assert.Equal(t, 1, rep.Inserted)
	assert.Len(t, matches.inserted, 1)
}

func TestDetectorRun_ListFailureIsFatal(t *testing.T) {
	entities := &fakeEntityStore{listErr: errors.New("connection refused")}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, rep)
}

func TestDetectorRun_SimilarityFailuresAreCountedNotFatal(t *testing.T) {
	entities := &fakeEntityStore{
		entities: []types.CanonicalEntity{
			person("e1", "Ben Knight", "ben@example.org", ""),
			person("e2", "Benjamin Knight", "ben@example.org", ""),
		},
		findErr: errors.New("timeout"),
	}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	// Phase 1 failed per entity; phase 2 still found the pair.
	assert.Equal(t, 2, rep.Errors)
	assert.Equal(t, 1, rep.Inserted)
}

func TestDetectorRun_OnlyPersonEntitiesScanned(t *testing.T) {
	org := types.CanonicalEntity{ID: "o1", EntityType: "organization", CanonicalName: "Knight Industries"}
	entities := &fakeEntityStore{entities: []types.CanonicalEntity{
		person("e1", "Ben Knight", "", ""),
		org,
	}}
	matches := newFakeMatchStore()

	d := NewDetector(entities, matches, Options{RPCsPerSecond: 1000})
	rep, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Entities)
	assert.Empty(t, matches.inserted)
}

// Raising the threshold can only shrink the result set.
func TestDetectorRun_ThresholdMonotonicity(t *testing.T) {
	fixture := []types.CanonicalEntity{
		person("e1", "Ben Knight", "ben@example.org", ""),
		person("e2", "Benjamin Knight", "ben@example.org", ""),
		person("e3", "Bella Knight", "", ""),
		person("e4", "B Knight", "", "ACT Global"),
	}

	prev := -1
	for _, threshold := range []float64{0.3, 0.5, 0.7, 0.9} {
		entities := &fakeEntityStore{entities: fixture}
		matches := newFakeMatchStore()
		d := NewDetector(entities, matches, Options{Threshold: threshold, RPCsPerSecond: 1000})
		rep, err := d.Run(context.Background())
		require.NoError(t, err)

		if prev >= 0 {
			assert.LessOrEqual(t, rep.Inserted, prev, "threshold %.1f", threshold)
		}
		prev = rep.Inserted
	}
}
