package types

import "time"

// EpisodeType classifies what kind of activity an episode captures.
type EpisodeType string

const (
	// EpisodeDecisionSequence marks clusters where decision items make up
	// at least 30% of the members.
	EpisodeDecisionSequence EpisodeType = "decision_sequence"

	// EpisodeProjectPhase is the default classification for everything else.
	EpisodeProjectPhase EpisodeType = "project_phase"
)

// EpisodeStatus reflects whether an episode's time range is recent.
type EpisodeStatus string

const (
	EpisodeActive    EpisodeStatus = "active"
	EpisodeCompleted EpisodeStatus = "completed"
)

// KeyEvent is a denormalized snapshot of a member knowledge item. Episodes
// keep copies rather than references so they remain stable even if the
// source items change later.
type KeyEvent struct {
	ID    string    `json:"id"`
	Type  string    `json:"type"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// Episode is a synthesized cluster of temporally-adjacent knowledge items
// within one project. Title and summary are generated; StartedAt/EndedAt
// are the min/max recorded_at of the member items.
type Episode struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Summary     string        `json:"summary"`
	EpisodeType EpisodeType   `json:"episode_type"`
	ProjectCode string        `json:"project_code"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	KeyEvents   []KeyEvent    `json:"key_events"`
	Topics      []string      `json:"topics,omitempty"`
	Status      EpisodeStatus `json:"status"`
	Embedding   []float32     `json:"embedding,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
