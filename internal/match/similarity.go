package match

import (
	"strings"

	"github.com/act-global/loom/internal/normalize"
	"github.com/act-global/loom/pkg/types"
)

// In-process similarity weights. Email identity is the strongest signal,
// phone identity next, then name proximity; a shared company nudges any
// existing signal upward but never matches on its own.
const (
	similarityEmail   = 0.90
	similarityPhone   = 0.75
	similarityName    = 0.50
	similarityCompany = 0.10
)

// Similarity computes a duplicate confidence score and reasons for two
// entities without datastore support. The SQLite backend uses it to serve
// FindPotentialDuplicates; the PostgreSQL backend computes an equivalent
// score server-side with trigram similarity.
func Similarity(a, b types.CanonicalEntity) (float64, types.MatchReasons) {
	var reasons types.MatchReasons
	var score float64

	if a.CanonicalEmail != "" && b.CanonicalEmail != "" &&
		normalize.Email(a.CanonicalEmail) == normalize.Email(b.CanonicalEmail) {
		reasons.SameEmail = true
		score = similarityEmail
	}

	if a.CanonicalPhone != "" && b.CanonicalPhone != "" &&
		normalize.Phone(a.CanonicalPhone) == normalize.Phone(b.CanonicalPhone) {
		reasons.SamePhone = true
		if score < similarityPhone {
			score = similarityPhone
		}
	}

	if NameSubstringMatch(a.CanonicalName, b.CanonicalName) {
		reasons.NameSimilar = true
		if score < similarityName {
			score = similarityName
		}
	}

	// Company agreement only boosts an existing signal; two unrelated people
	// at the same organisation are not duplicates.
	if score > 0 && a.CanonicalCompany != "" && b.CanonicalCompany != "" &&
		strings.EqualFold(strings.TrimSpace(a.CanonicalCompany), strings.TrimSpace(b.CanonicalCompany)) {
		reasons.SameCompany = true
		score += similarityCompany
	}

	if score > maxHeuristicScore {
		score = maxHeuristicScore
	}

	return score, reasons
}
