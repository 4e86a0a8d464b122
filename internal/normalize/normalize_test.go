package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ben.Knight@Example.ORG", "ben.knight@example.org"},
		{"  spaced@example.org  ", "spaced@example.org"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Email(tt.in), "Email(%q)", tt.in)
	}
}

func TestTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Empathy Ledger", "empathy-ledger"},
		{"empathy-ledger", "empathy-ledger"},
		{"  Rollout   Plan  ", "rollout-plan"},
		{"--edge--case--", "edge-case"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tag(tt.in), "Tag(%q)", tt.in)
	}
}

func TestTags(t *testing.T) {
	got := Tags([]string{"Empathy Ledger", "budget", "empathy-ledger", "", "Budget"})
	assert.Equal(t, []string{"empathy-ledger", "budget"}, got)

	assert.Empty(t, Tags(nil))
	assert.Empty(t, Tags([]string{"", "  "}))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mobile with leading zero", "0412345678", "+61 412 345 678"},
		{"mobile with country code", "+61412345678", "+61 412 345 678"},
		{"mobile with punctuation", "0412-345-678", "+61 412 345 678"},
		{"landline", "0298765432", "+61 2 9876 5432"},
		{"landline with country code", "61298765432", "+61 2 9876 5432"},
		{"already formatted", "+61 412 345 678", "+61 412 345 678"},
		{"too short passes through", "12345", "12345"},
		{"international non-AU passes through", "+1 415 555 0100", "+1 415 555 0100"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}
