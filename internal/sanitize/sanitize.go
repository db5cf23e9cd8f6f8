// Package sanitize cleans free-text media metadata (titles, alt text,
// descriptions, tags) before it is stored. Uses bluemonday's strict policy
// so no markup survives; the result is plain text that the admin frontend
// may interpolate without escaping surprises.
package sanitize

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// plainEntities reverts only the escapes the policy applies to harmless
// characters. &lt; and &gt; stay encoded so decoded input never turns back
// into markup.
var plainEntities = strings.NewReplacer(
	"&amp;", "&",
	"&#34;", `"`,
	"&#39;", "'",
)

// Text strips every HTML element from input and returns trimmed plain text.
// "Guantes & batas" is stored as typed.
func Text(input string) string {
	if input == "" {
		return ""
	}
	cleaned := getPolicy().Sanitize(input)
	return strings.TrimSpace(plainEntities.Replace(cleaned))
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// Tags normalizes a comma-separated tag list: each tag is sanitized,
// empties and case-insensitive duplicates are dropped, original order kept.
func Tags(input string) string {
	if input == "" {
		return ""
	}
	seen := make(map[string]bool)
	var out []string
	for _, raw := range strings.Split(input, ",") {
		tag := Text(raw)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return strings.Join(out, ", ")
}
