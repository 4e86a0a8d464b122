// Package episode implements the episode-clustering pipeline: it groups a
// project's knowledge items into temporally coherent clusters, synthesizes a
// title, summary and type for each, embeds them, and persists the result.
package episode

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/act-global/loom/internal/embedding"
	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// Clustering defaults. A gap of more than GapDays between consecutive items
// starts a new cluster; clusters below MinItems are discarded; episodes
// whose range ended within ActiveWindowDays are still "active".
const (
	DefaultGapDays          = 14
	DefaultMinItems         = 2
	DefaultActiveWindowDays = 14
)

// Options configures a Clusterer.
type Options struct {
	GapDays          int
	MinItems         int
	ActiveWindowDays int

	// Now supplies the run timestamp; defaults to time.Now. Injected so
	// status and title synthesis are testable.
	Now func() time.Time
}

func (o *Options) normalize() {
	if o.GapDays <= 0 {
		o.GapDays = DefaultGapDays
	}
	if o.MinItems <= 0 {
		o.MinItems = DefaultMinItems
	}
	if o.ActiveWindowDays <= 0 {
		o.ActiveWindowDays = DefaultActiveWindowDays
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Report summarizes one clustering run.
type Report struct {
	Items    int // project-linked knowledge items scanned
	Detected int // clusters that met the minimum size
	Covered  int // clusters skipped because an existing episode covers the range
	Inserted int
	Failed   int // per-episode embed/insert failures (logged, non-fatal)
	Total    int // episodes in the store after the run
}

// Clusterer detects and persists episodes.
type Clusterer struct {
	knowledge storage.KnowledgeStore
	episodes  storage.EpisodeStore
	embedder  embedding.Embedder
	opts      Options
}

// NewClusterer wires a clusterer against the given stores and embedder.
func NewClusterer(knowledge storage.KnowledgeStore, episodes storage.EpisodeStore, embedder embedding.Embedder, opts Options) *Clusterer {
	opts.normalize()
	return &Clusterer{
		knowledge: knowledge,
		episodes:  episodes,
		embedder:  embedder,
		opts:      opts,
	}
}

// cluster is a run of temporally-adjacent items within one project.
type cluster struct {
	project string
	items   []types.KnowledgeItem
}

// Detect loads project-linked knowledge items, clusters them, and returns
// the synthesized episodes without writing anything. Dry-run mode stops
// here.
func (c *Clusterer) Detect(ctx context.Context) ([]types.Episode, int, error) {
	items, err := c.knowledge.ListKnowledgeItems(ctx, storage.KnowledgeFilter{ProjectLinkedOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("episode: failed to load knowledge items: %w", err)
	}

	clusters := clusterItems(items, c.opts.GapDays, c.opts.MinItems)

	now := c.opts.Now()
	episodes := make([]types.Episode, 0, len(clusters))
	for _, cl := range clusters {
		episodes = append(episodes, c.synthesize(cl, now))
	}

	return episodes, len(items), nil
}

// Run performs a full detection pass: detect, skip covered ranges, embed,
// insert, report. Per-episode embed/insert failures are logged and counted
// but do not abort remaining inserts.
func (c *Clusterer) Run(ctx context.Context) (*Report, error) {
	detected, itemCount, err := c.Detect(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{Items: itemCount, Detected: len(detected)}

	existing, err := c.episodes.ListEpisodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("episode: failed to load existing episodes: %w", err)
	}

	// Re-run policy: a cluster whose time range overlaps an episode already
	// stored for the same project is considered covered and skipped, so
	// repeated runs do not pile up duplicate episodes.
	fresh := make([]types.Episode, 0, len(detected))
	for _, ep := range detected {
		if coveredBy(ep, existing) {
			rep.Covered++
			continue
		}
		fresh = append(fresh, ep)
	}

	if len(fresh) > 0 {
		texts := make([]string, len(fresh))
		for i, ep := range fresh {
			texts[i] = ep.Title + "\n\n" + ep.Summary
		}

		// Vectors are positionally aligned with fresh; the embedder
		// guarantees same length and order.
		vectors, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Printf("episode: batch embedding failed, no episodes inserted this run: %v", err)
			rep.Failed = len(fresh)
			fresh = nil
		} else {
			for i := range fresh {
				fresh[i].Embedding = vectors[i]
			}
		}
	}

	for i := range fresh {
		ep := &fresh[i]
		if err := c.episodes.InsertEpisode(ctx, ep); err != nil {
			log.Printf("episode: failed to insert %q: %v", ep.Title, err)
			rep.Failed++
			continue
		}
		rep.Inserted++
	}

	total, err := c.episodes.CountEpisodes(ctx)
	if err != nil {
		log.Printf("episode: failed to count stored episodes: %v", err)
	} else {
		rep.Total = total
	}

	return rep, nil
}

// clusterItems partitions items by project, drops unlinked and undated
// items, and splits each project's timeline wherever consecutive items are
// more than gapDays apart. Clusters smaller than minItems are discarded.
func clusterItems(items []types.KnowledgeItem, gapDays, minItems int) []cluster {
	gap := time.Duration(gapDays) * 24 * time.Hour

	byProject := make(map[string][]types.KnowledgeItem)
	for _, item := range items {
		if item.ProjectCode == "" || item.RecordedAt == nil {
			continue
		}
		byProject[item.ProjectCode] = append(byProject[item.ProjectCode], item)
	}

	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	var clusters []cluster
	for _, project := range projects {
		members := byProject[project]
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].RecordedAt.Equal(*members[j].RecordedAt) {
				return members[i].ID < members[j].ID
			}
			return members[i].RecordedAt.Before(*members[j].RecordedAt)
		})

		var current []types.KnowledgeItem
		flush := func() {
			if len(current) >= minItems {
				clusters = append(clusters, cluster{project: project, items: current})
			}
			current = nil
		}

		for _, item := range members {
			if len(current) > 0 {
				prev := current[len(current)-1].RecordedAt
				if item.RecordedAt.Sub(*prev) > gap {
					flush()
				}
			}
			current = append(current, item)
		}
		flush()
	}

	return clusters
}

// coveredBy reports whether an episode's time range overlaps any existing
// episode of the same project.
func coveredBy(ep types.Episode, existing []types.Episode) bool {
	for _, ex := range existing {
		if ex.ProjectCode != ep.ProjectCode {
			continue
		}
		if !ep.StartedAt.After(ex.EndedAt) && !ex.StartedAt.After(ep.EndedAt) {
			return true
		}
	}
	return false
}

// newEpisodeID returns a fresh episode row ID.
func newEpisodeID() string {
	return uuid.NewString()
}
