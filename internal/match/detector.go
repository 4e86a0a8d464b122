// Package match implements the duplicate-detection pipeline: a batch scan
// over canonical person entities that records probable duplicate pairs for
// later human or automated resolution.
//
// Detection runs in two phases. Phase 1 asks the datastore's similarity
// search for candidates per entity. Phase 2 groups entities by surname and
// applies a name-substring heuristic that catches pairs the similarity
// search misses, such as "Ben" vs "Benjamin".
package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// DefaultThreshold is the minimum confidence for recording a pair.
const DefaultThreshold = 0.5

// largeGroupWarn is the surname-group size above which the quadratic phase 2
// scan is logged. Groups this large are rare in practice; the scan still
// runs but the warning makes a blowup visible in run logs.
const largeGroupWarn = 100

// Options configures a Detector.
type Options struct {
	// Threshold is the minimum match confidence. Zero is honored (every
	// candidate pair is recorded); negative values fall back to
	// DefaultThreshold.
	Threshold float64

	// RPCsPerSecond paces similarity-search calls against the datastore.
	// Zero means 10/s.
	RPCsPerSecond float64
}

// Report summarizes one detection run.
type Report struct {
	Entities     int // person entities scanned
	Candidates   int // candidate pairs evaluated across both phases
	Inserted     int // new pending matches recorded
	Skipped      int // pairs already present (benign conflicts)
	Errors       int // per-item failures (logged, non-fatal)
	PendingTotal int // pending backlog size after the run
}

// Detector finds probable duplicate person entities and records them as
// pending potential matches.
type Detector struct {
	entities  storage.EntityStore
	matches   storage.MatchStore
	threshold float64
	limiter   *rate.Limiter
}

// NewDetector wires a detector against the given stores.
func NewDetector(entities storage.EntityStore, matches storage.MatchStore, opts Options) *Detector {
	threshold := opts.Threshold
	if threshold < 0 {
		threshold = DefaultThreshold
	}

	rps := opts.RPCsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &Detector{
		entities:  entities,
		matches:   matches,
		threshold: threshold,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// pairKey is a canonically ordered entity ID pair.
type pairKey struct {
	a, b string
}

// Run executes both detection phases and returns the run report. Failure to
// load the entity list is fatal; per-entity and per-insert failures are
// logged, counted, and do not stop the scan.
func (d *Detector) Run(ctx context.Context) (*Report, error) {
	entities, err := d.entities.ListEntities(ctx, types.EntityTypePerson)
	if err != nil {
		return nil, fmt.Errorf("match: failed to load person entities: %w", err)
	}

	rep := &Report{Entities: len(entities)}
	seen := make(map[pairKey]bool)

	d.runSimilarityPhase(ctx, entities, seen, rep)
	d.runNamePhase(ctx, entities, seen, rep)

	total, err := d.matches.CountPendingMatches(ctx)
	if err != nil {
		log.Printf("match: failed to count pending backlog: %v", err)
	} else {
		rep.PendingTotal = total
	}

	return rep, nil
}

// runSimilarityPhase asks the datastore for candidates per entity (phase 1).
func (d *Detector) runSimilarityPhase(ctx context.Context, entities []types.CanonicalEntity, seen map[pairKey]bool, rep *Report) {
	for _, e := range entities {
		if err := d.limiter.Wait(ctx); err != nil {
			log.Printf("match: similarity phase interrupted: %v", err)
			return
		}

		candidates, err := d.entities.FindPotentialDuplicates(ctx, e.ID, d.threshold)
		if err != nil {
			log.Printf("match: similarity search failed for %q (%s): %v", e.CanonicalName, e.ID, err)
			rep.Errors++
			continue
		}

		for _, c := range candidates {
			d.record(ctx, rep, seen, e, c.CandidateID, c.MatchScore, c.MatchReasons)
		}
	}
}

// runNamePhase applies the name-substring heuristic within surname groups
// (phase 2). Cost is quadratic per group; group sizes are small in practice.
func (d *Detector) runNamePhase(ctx context.Context, entities []types.CanonicalEntity, seen map[pairKey]bool, rep *Report) {
	groups := make(map[string][]types.CanonicalEntity)
	for _, e := range entities {
		key := lastNameKey(e.CanonicalName)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], e)
	}

	for key, group := range groups {
		if len(group) > largeGroupWarn {
			log.Printf("match: surname group %q has %d entities, phase 2 compares %d pairs",
				key, len(group), len(group)*(len(group)-1)/2)
		}

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if seen[keyFor(a.ID, b.ID)] {
					continue
				}
				if !NameSubstringMatch(a.CanonicalName, b.CanonicalName) {
					continue
				}

				score, reasons := PairScore(a, b)
				if score < d.threshold {
					continue
				}

				d.record(ctx, rep, seen, a, b.ID, score, reasons)
			}
		}
	}
}

// record canonicalizes the pair, deduplicates within the run, and attempts
// the idempotent insert. A uniqueness conflict counts as skipped; any other
// insert failure is logged and counted as an error.
func (d *Detector) record(ctx context.Context, rep *Report, seen map[pairKey]bool, e types.CanonicalEntity, otherID string, score float64, reasons types.MatchReasons) {
	if otherID == e.ID {
		return
	}

	key := keyFor(e.ID, otherID)
	if seen[key] {
		return
	}
	seen[key] = true
	rep.Candidates++

	err := d.matches.InsertPotentialMatch(ctx, &types.PotentialMatch{
		ID:           uuid.NewString(),
		EntityAID:    key.a,
		EntityBID:    key.b,
		MatchScore:   score,
		MatchReasons: reasons,
		Status:       types.MatchPending,
		CreatedAt:    time.Now(),
	})
	switch {
	case err == nil:
		rep.Inserted++
	case errors.Is(err, storage.ErrConflict):
		rep.Skipped++
	default:
		log.Printf("match: failed to record pair for %q (%s, %s): %v", e.CanonicalName, key.a, key.b, err)
		rep.Errors++
	}
}

func keyFor(id1, id2 string) pairKey {
	a, b := orderPair(id1, id2)
	return pairKey{a: a, b: b}
}
