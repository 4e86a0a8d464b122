package types

import "time"

// Knowledge item types produced by the upstream capture tooling.
const (
	KnowledgeMeeting  = "meeting"
	KnowledgeDecision = "decision"
	KnowledgeAction   = "action"
)

// KnowledgeItem is a timestamped fact or note belonging to a project.
// Items are produced upstream and are immutable from this pipeline's
// perspective. Items without a project code are excluded from clustering,
// and items without a recorded_at cannot be placed on a timeline.
type KnowledgeItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	KnowledgeType string     `json:"knowledge_type"`
	ProjectCode   string     `json:"project_code,omitempty"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty"`
	Topics        []string   `json:"topics,omitempty"`
	Summary       string     `json:"summary,omitempty"`
}
