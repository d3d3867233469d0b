package redact

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// pemPattern matches PEM key blocks across multiple lines.
var pemPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+KEY-----.*?-----END [A-Z ]+KEY-----`)

// rule is a named single-line pattern.
type rule struct {
	name string
	re   *regexp.Regexp
}

// rules holds the single-line patterns in priority order. Incident write-ups
// often paste credentials from logs or tickets alongside customer details.
var rules = []rule{
	{"aws_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	// OpenAI / Anthropic secret keys, word-boundary aware
	{"api_key", regexp.MustCompile(`(?:^|\s|["'])sk-[a-zA-Z0-9]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)},
	// minimum 20-char token to avoid false positives
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]{20,}=*`)},
	{"password", regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`)},
	{"card_number", regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)},
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
}

// Counts reports how many matches of each kind were replaced.
type Counts map[string]int

// Total returns the number of replacements across all kinds.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Apply replaces secrets and customer identifiers in input with
// [REDACTED] and reports what it replaced. Line structure is preserved: the
// output has as many newlines as the input.
func Apply(input string) (string, Counts) {
	counts := Counts{}

	// PEM blocks go first, one placeholder per line.
	input = pemPattern.ReplaceAllStringFunc(input, func(match string) string {
		counts["private_key"]++
		lines := strings.Split(match, "\n")
		for i := range lines {
			lines[i] = redacted
		}
		return strings.Join(lines, "\n")
	})

	for _, r := range rules {
		input = r.re.ReplaceAllStringFunc(input, func(string) string {
			counts[r.name]++
			return redacted
		})
	}
	return input, counts
}
