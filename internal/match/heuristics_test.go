package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/act-global/loom/pkg/types"
)

func TestNameSubstringMatch(t *testing.T) {
	tests := []struct {
		name  string
		name1 string
		name2 string
		want  bool
	}{
		{"short form vs full", "Ben Knight", "Benjamin Knight", true},
		{"initial vs full first name", "J Smith", "Jane Smith", true},
		{"same surname different first", "Alice Knight", "Robert Knight", true},
		{"identical", "Ben Knight", "Ben Knight", true},
		{"case insensitive", "BEN KNIGHT", "ben knight", true},
		{"unrelated", "Alice Wong", "Robert Chen", false},
		{"single short tokens", "Al", "Bo", false},
		{"empty left", "", "Ben Knight", false},
		{"empty right", "Ben Knight", "", false},
		{"both empty", "", "", false},
		{"equal short surnames match as tokens", "Alice Ng", "Robert Ng", true},
		{"single token names share prefix", "Benjamin", "Ben", true},
		{"single token equals other's surname", "Knight", "Robert Knight", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameSubstringMatch(tt.name1, tt.name2))
		})
	}
}

// Name matching must treat the pair as unordered.
func TestNameSubstringMatch_Symmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := rapid.StringMatching(`[A-Za-z]{0,10}( [A-Za-z]{0,10}){0,3}`)
		a := gen.Draw(rt, "a")
		b := gen.Draw(rt, "b")
		if NameSubstringMatch(a, b) != NameSubstringMatch(b, a) {
			rt.Fatalf("asymmetric result for %q / %q", a, b)
		}
	})
}

func TestPairScore(t *testing.T) {
	base := types.CanonicalEntity{ID: "a", CanonicalName: "Ben Knight"}

	t.Run("name only", func(t *testing.T) {
		other := types.CanonicalEntity{ID: "b", CanonicalName: "Benjamin Knight"}
		score, reasons := PairScore(base, other)
		assert.InDelta(t, 0.40, score, 1e-9)
		assert.True(t, reasons.NameSubstring)
		assert.False(t, reasons.SameEmail)
		assert.False(t, reasons.SameCompany)
	})

	t.Run("shared email", func(t *testing.T) {
		a := base
		a.CanonicalEmail = "ben@example.org"
		other := types.CanonicalEntity{ID: "b", CanonicalName: "Benjamin Knight", CanonicalEmail: "BEN@Example.org "}
		score, reasons := PairScore(a, other)
		assert.InDelta(t, 0.80, score, 1e-9)
		assert.True(t, reasons.SameEmail)
	})

	t.Run("shared company", func(t *testing.T) {
		a := base
		a.CanonicalCompany = "ACT Global"
		other := types.CanonicalEntity{ID: "b", CanonicalName: "Benjamin Knight", CanonicalCompany: "act global"}
		score, reasons := PairScore(a, other)
		assert.InDelta(t, 0.60, score, 1e-9)
		assert.True(t, reasons.SameCompany)
	})

	t.Run("everything shared is capped", func(t *testing.T) {
		a := base
		a.CanonicalEmail = "ben@example.org"
		a.CanonicalCompany = "ACT Global"
		other := a
		other.ID = "b"
		other.CanonicalName = "Benjamin Knight"
		score, _ := PairScore(a, other)
		assert.InDelta(t, 0.99, score, 1e-9)
	})

	t.Run("empty fields never boost", func(t *testing.T) {
		other := types.CanonicalEntity{ID: "b", CanonicalName: "Benjamin Knight"}
		score, reasons := PairScore(base, other)
		assert.InDelta(t, 0.40, score, 1e-9)
		assert.False(t, reasons.SameEmail)
		assert.False(t, reasons.SameCompany)
	})
}

func TestLastNameKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ben Knight", "knight"},
		{"benjamin KNIGHT", "knight"},
		{"Madonna", ""},
		{"Alice Ng", ""},
		{"", ""},
		{"Mary Jane Watson", "watson"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lastNameKey(tt.name), "lastNameKey(%q)", tt.name)
	}
}

func TestOrderPair(t *testing.T) {
	a, b := orderPair("zzz", "aaa")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "zzz", b)

	a, b = orderPair("aaa", "zzz")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "zzz", b)
}
