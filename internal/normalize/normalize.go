// Package normalize holds the data-quality helpers shared by the pipelines:
// canonical email, tag and phone forms so comparisons don't trip over
// formatting noise introduced by the upstream CRM sync.
package normalize

import (
	"fmt"
	"strings"
)

// Email lowercases and trims an email address. Empty input stays empty.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Tag normalizes a topic tag: lowercase, spaces become hyphens, repeated
// hyphens collapse, leading/trailing hyphens are stripped. "Empathy Ledger"
// and "empathy-ledger" normalize to the same tag.
func Tag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.ReplaceAll(t, " ", "-")
	for strings.Contains(t, "--") {
		t = strings.ReplaceAll(t, "--", "-")
	}
	return strings.Trim(t, "-")
}

// Tags normalizes a list of tags and drops empties and duplicates while
// preserving first-seen order.
func Tags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := Tag(tag)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Phone formats an Australian phone number as +61 XXX XXX XXX (mobile) or
// +61 X XXXX XXXX (landline). Numbers that don't reduce to nine national
// digits are returned unchanged rather than guessed at.
func Phone(phone string) string {
	if phone == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case strings.HasPrefix(d, "61"):
		d = d[2:]
	case strings.HasPrefix(d, "0"):
		d = d[1:]
	}

	if len(d) != 9 {
		return phone
	}

	if d[0] == '4' {
		// Mobile: +61 4XX XXX XXX
		return fmt.Sprintf("+61 %s %s %s", d[0:3], d[3:6], d[6:9])
	}
	// Landline: +61 X XXXX XXXX
	return fmt.Sprintf("+61 %s %s %s", d[0:1], d[1:5], d[5:9])
}
