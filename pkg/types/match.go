package types

import "time"

// MatchStatus is the review state of a potential duplicate pair.
// The detector only ever inserts MatchPending; the other transitions are
// made by a human reviewer or the downstream auto-merge process.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
	MatchMerged    MatchStatus = "merged"
)

// MatchReasons records which heuristics fired for a candidate pair. It is
// stored alongside the match so a reviewer can see why the pair was flagged.
type MatchReasons struct {
	NameSubstring bool `json:"name_substring,omitempty"`
	NameSimilar   bool `json:"name_similar,omitempty"`
	SameEmail     bool `json:"same_email,omitempty"`
	SamePhone     bool `json:"same_phone,omitempty"`
	SameCompany   bool `json:"same_company,omitempty"`
}

// PotentialMatch is an unordered candidate duplicate pair of canonical
// entities awaiting resolution.
//
// Invariant: EntityAID < EntityBID, so each unordered pair has exactly one
// canonical representation and re-running detection never produces mirrored
// rows. The pair is unique; inserting it twice is a benign conflict.
type PotentialMatch struct {
	ID           string       `json:"id"`
	EntityAID    string       `json:"entity_a_id"`
	EntityBID    string       `json:"entity_b_id"`
	MatchScore   float64      `json:"match_score"`
	MatchReasons MatchReasons `json:"match_reasons"`
	Status       MatchStatus  `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}
