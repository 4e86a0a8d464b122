package episode

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/act-global/loom/internal/normalize"
	"github.com/act-global/loom/pkg/types"
)

// maxActionTitles bounds how many action titles appear in the summary
// before the "+N more" suffix kicks in.
const maxActionTitles = 3

// synthesize builds the Episode record for one cluster: type, title,
// summary, topic union, key-event snapshots and status.
func (c *Clusterer) synthesize(cl cluster, now time.Time) types.Episode {
	started := *cl.items[0].RecordedAt
	ended := *cl.items[len(cl.items)-1].RecordedAt

	var meetings, decisions, actions []string
	for _, item := range cl.items {
		switch item.KnowledgeType {
		case types.KnowledgeMeeting:
			meetings = append(meetings, item.Title)
		case types.KnowledgeDecision:
			decisions = append(decisions, item.Title)
		case types.KnowledgeAction:
			actions = append(actions, item.Title)
		}
	}

	episodeType := types.EpisodeProjectPhase
	// Decision-heavy clusters (>=30% decision items) are decision sequences.
	if len(decisions)*10 >= len(cl.items)*3 {
		episodeType = types.EpisodeDecisionSequence
	}

	keyEvents := make([]types.KeyEvent, len(cl.items))
	for i, item := range cl.items {
		keyEvents[i] = types.KeyEvent{
			ID:    item.ID,
			Type:  item.KnowledgeType,
			Title: item.Title,
			Date:  *item.RecordedAt,
		}
	}

	topics := topicUnion(cl.items)

	status := types.EpisodeCompleted
	if ended.After(now.Add(-time.Duration(c.opts.ActiveWindowDays) * 24 * time.Hour)) {
		status = types.EpisodeActive
	}

	return types.Episode{
		ID:          newEpisodeID(),
		Title:       buildTitle(cl.project, topics.mostFrequent, len(meetings), len(decisions), started),
		Summary:     buildSummary(meetings, decisions, actions),
		EpisodeType: episodeType,
		ProjectCode: cl.project,
		StartedAt:   started,
		EndedAt:     ended,
		KeyEvents:   keyEvents,
		Topics:      topics.sorted,
		Status:      status,
		CreatedAt:   now,
	}
}

// topicStats carries the topic union plus the most frequent topic for the
// title heuristic.
type topicStats struct {
	sorted       []string
	mostFrequent string
}

// topicUnion normalizes and unions member topics, tracking the most
// frequent one. Frequency ties break lexicographically so titles are
// deterministic.
func topicUnion(items []types.KnowledgeItem) topicStats {
	counts := make(map[string]int)
	for _, item := range items {
		for _, topic := range normalize.Tags(item.Topics) {
			counts[topic]++
		}
	}

	union := make([]string, 0, len(counts))
	for topic := range counts {
		union = append(union, topic)
	}
	sort.Strings(union)

	var top string
	for _, topic := range union {
		if top == "" || counts[topic] > counts[top] {
			top = topic
		}
	}

	return topicStats{sorted: union, mostFrequent: top}
}

// buildTitle picks the first applicable label: dominant topic, decision
// phase, planning phase, then a generic activity label. The month-year is
// always derived from the earliest member item.
func buildTitle(project, topTopic string, meetings, decisions int, started time.Time) string {
	monthYear := started.Format("January 2006")

	switch {
	case topTopic != "":
		return fmt.Sprintf("%s: %s (%s)", project, topTopic, monthYear)
	case decisions > 0:
		return fmt.Sprintf("%s: Decision Phase (%s)", project, monthYear)
	case meetings >= 2:
		return fmt.Sprintf("%s: Planning & Coordination (%s)", project, monthYear)
	default:
		return fmt.Sprintf("%s: Activity Cluster (%s)", project, monthYear)
	}
}

// buildSummary concatenates up to three clauses, omitting empty ones.
// Meetings and decisions list every title; actions are truncated after
// maxActionTitles with a "+N more" suffix.
func buildSummary(meetings, decisions, actions []string) string {
	var clauses []string

	if len(meetings) > 0 {
		clauses = append(clauses, "Meetings: "+strings.Join(meetings, "; "))
	}
	if len(decisions) > 0 {
		clauses = append(clauses, "Decisions: "+strings.Join(decisions, "; "))
	}
	if len(actions) > 0 {
		shown := actions
		suffix := ""
		if len(actions) > maxActionTitles {
			shown = actions[:maxActionTitles]
			suffix = fmt.Sprintf(" (+%d more)", len(actions)-maxActionTitles)
		}
		clauses = append(clauses, "Actions: "+strings.Join(shown, "; ")+suffix)
	}

	return strings.Join(clauses, ". ")
}
