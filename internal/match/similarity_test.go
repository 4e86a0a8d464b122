package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/act-global/loom/pkg/types"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.CanonicalEntity
		wantScore float64
		check     func(t *testing.T, r types.MatchReasons)
	}{
		{
			name:      "same email dominates",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight", CanonicalEmail: "ben@example.org"},
			b:         types.CanonicalEntity{CanonicalName: "Alice Wong", CanonicalEmail: "Ben@Example.org"},
			wantScore: 0.90,
			check: func(t *testing.T, r types.MatchReasons) {
				assert.True(t, r.SameEmail)
				assert.False(t, r.NameSimilar)
			},
		},
		{
			name:      "same phone in different formats",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight", CanonicalPhone: "0412345678"},
			b:         types.CanonicalEntity{CanonicalName: "Alice Wong", CanonicalPhone: "+61 412 345 678"},
			wantScore: 0.75,
			check: func(t *testing.T, r types.MatchReasons) {
				assert.True(t, r.SamePhone)
			},
		},
		{
			name:      "similar name only",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight"},
			b:         types.CanonicalEntity{CanonicalName: "Benjamin Knight"},
			wantScore: 0.50,
			check: func(t *testing.T, r types.MatchReasons) {
				assert.True(t, r.NameSimilar)
			},
		},
		{
			name:      "company boosts an existing signal",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight", CanonicalCompany: "ACT Global"},
			b:         types.CanonicalEntity{CanonicalName: "Benjamin Knight", CanonicalCompany: "act global"},
			wantScore: 0.60,
			check: func(t *testing.T, r types.MatchReasons) {
				assert.True(t, r.SameCompany)
			},
		},
		{
			name:      "company alone is not a signal",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight", CanonicalCompany: "ACT Global"},
			b:         types.CanonicalEntity{CanonicalName: "Alice Wong", CanonicalCompany: "ACT Global"},
			wantScore: 0,
			check: func(t *testing.T, r types.MatchReasons) {
				assert.False(t, r.SameCompany)
			},
		},
		{
			name: "all signals capped",
			a: types.CanonicalEntity{
				CanonicalName: "Ben Knight", CanonicalEmail: "ben@example.org",
				CanonicalPhone: "0412345678", CanonicalCompany: "ACT Global",
			},
			b: types.CanonicalEntity{
				CanonicalName: "Benjamin Knight", CanonicalEmail: "ben@example.org",
				CanonicalPhone: "+61412345678", CanonicalCompany: "ACT Global",
			},
			wantScore: 0.99,
			check:     func(t *testing.T, r types.MatchReasons) {},
		},
		{
			name:      "no overlap",
			a:         types.CanonicalEntity{CanonicalName: "Ben Knight"},
			b:         types.CanonicalEntity{CanonicalName: "Alice Wong"},
			wantScore: 0,
			check:     func(t *testing.T, r types.MatchReasons) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons := Similarity(tt.a, tt.b)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			tt.check(t, reasons)

			// Scoring is symmetric.
			mirror, _ := Similarity(tt.b, tt.a)
			assert.InDelta(t, score, mirror, 1e-9)
		})
	}
}
