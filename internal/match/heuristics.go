package match

import (
	"strings"

	"github.com/act-global/loom/internal/normalize"
	"github.com/act-global/loom/pkg/types"
)

// Scoring weights for the name-substring phase. The base fires on any name
// match; email and company agreement raise confidence. The cap keeps
// heuristic matches below a perfect similarity-search score.
const (
	nameMatchBase     = 0.40
	sameEmailBoost    = 0.40
	sameCompanyBoost  = 0.20
	maxHeuristicScore = 0.99
)

// NameSubstringMatch reports whether two display names plausibly refer to
// the same person. It is symmetric. A match requires either
//
//   - some whitespace token of one name to be a prefix of (or equal to) a
//     token of at least 2 characters in the other, catching "Ben" vs
//     "Benjamin" and initials like "J Smith" vs "Jane Smith", or
//   - both names to have at least two tokens with equal final tokens of at
//     least 3 characters (same surname).
func NameSubstringMatch(name1, name2 string) bool {
	t1 := strings.Fields(strings.ToLower(name1))
	t2 := strings.Fields(strings.ToLower(name2))
	if len(t1) == 0 || len(t2) == 0 {
		return false
	}

	if anyTokenPrefix(t1, t2) || anyTokenPrefix(t2, t1) {
		return true
	}

	if len(t1) >= 2 && len(t2) >= 2 {
		last1 := t1[len(t1)-1]
		last2 := t2[len(t2)-1]
		if last1 == last2 && len(last1) >= 3 {
			return true
		}
	}

	return false
}

// anyTokenPrefix reports whether any token in from is a prefix of any token
// of at least 2 characters in to.
func anyTokenPrefix(from, to []string) bool {
	for _, x := range from {
		for _, y := range to {
			if len(y) >= 2 && strings.HasPrefix(y, x) {
				return true
			}
		}
	}
	return false
}

// lastNameKey extracts the normalized grouping key for phase 2: the
// lowercased final whitespace token of the name. Names with fewer than two
// tokens or a surname shorter than 3 characters are excluded from grouping
// (returns "").
func lastNameKey(name string) string {
	tokens := strings.Fields(strings.ToLower(name))
	if len(tokens) < 2 {
		return ""
	}
	last := tokens[len(tokens)-1]
	if len(last) < 3 {
		return ""
	}
	return last
}

// PairScore computes the confidence and reasons for a name-substring match
// between two entities. The score is independent of any threshold; callers
// filter afterwards.
func PairScore(a, b types.CanonicalEntity) (float64, types.MatchReasons) {
	reasons := types.MatchReasons{NameSubstring: true}
	score := nameMatchBase

	if a.CanonicalEmail != "" && b.CanonicalEmail != "" &&
		normalize.Email(a.CanonicalEmail) == normalize.Email(b.CanonicalEmail) {
		score += sameEmailBoost
		reasons.SameEmail = true
	}

	if a.CanonicalCompany != "" && b.CanonicalCompany != "" &&
		strings.EqualFold(strings.TrimSpace(a.CanonicalCompany), strings.TrimSpace(b.CanonicalCompany)) {
		score += sameCompanyBoost
		reasons.SameCompany = true
	}

	if score > maxHeuristicScore {
		score = maxHeuristicScore
	}

	return score, reasons
}

// orderPair returns the two entity IDs in canonical order (smaller first),
// so every unordered pair has exactly one representation.
func orderPair(id1, id2 string) (string, string) {
	if id1 < id2 {
		return id1, id2
	}
	return id2, id1
}
