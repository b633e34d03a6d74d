package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCorrections are phrases recognizers reliably get wrong.
var DefaultCorrections = map[string]string{
	"chat gpt":    "ChatGPT",
	"you tube":    "YouTube",
	"mine craft":  "Minecraft",
	"ram sathvik": "Ram Sathvik",
	"open ai":     "OpenAI",
}

type correction struct {
	pattern *regexp.Regexp
	to      string
}

// Corrector title-cases a transcribed fragment and then rewrites known
// mis-transcriptions to their canonical spelling.
type Corrector struct {
	rules []correction
}

// NewCorrector merges extra over DefaultCorrections. Keys match
// case-insensitively on word boundaries with any run of whitespace between
// words.
func NewCorrector(extra map[string]string) *Corrector {
	merged := make(map[string]string, len(DefaultCorrections)+len(extra))
	for k, v := range DefaultCorrections {
		merged[strings.ToLower(k)] = v
	}
	for k, v := range extra {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		if k != "" {
			keys = append(keys, k)
		}
	}
	// Longer phrases first so "open ai studio" wins over "open ai".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	c := &Corrector{}
	for _, k := range keys {
		words := strings.Fields(k)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		c.rules = append(c.rules, correction{
			pattern: regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`),
			to:      merged[k],
		})
	}
	return c
}

// Fix normalizes one fragment. locale picks the casing rules.
func (c *Corrector) Fix(text, locale string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	text = cases.Title(tag).String(text)

	for _, r := range c.rules {
		text = r.pattern.ReplaceAllLiteralString(text, r.to)
	}
	return text
}
