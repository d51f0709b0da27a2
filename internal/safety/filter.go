// Package safety provides a fast, local, pre-LLM content gate over user
// transcripts. It is a best-effort lexical check, not a classifier: false
// negatives are expected and acceptable.
package safety

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Result is the verdict for one transcript check.
type Result struct {
	Safe bool
	// Reason names the first matching rule when Safe is false.
	Reason string
}

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// Filter evaluates an ordered list of named pattern rules against a
// transcript, case-insensitively.
type Filter struct {
	enabled bool
	rules   []rule
}

var defaultRules = []struct {
	name    string
	pattern string
}{
	{"profanity_or_slur", `\b(fuck|shit|bitch|asshole)\b`},
	{"explicit_threat", `\b(i\s+will\s+(kill|hurt|harm)|i'?m\s+going\s+to\s+(kill|hurt|harm))\b`},
	{"pii_solicitation", `\b(tell\s+me\s+your\s+(ssn|social security number|home address|credit card number|password))\b`},
}

// New builds a filter. When patternsFile is non-empty its rules fully replace
// the defaults; a missing or malformed file falls back to the default set
// rather than failing construction.
func New(enabled bool, patternsFile string, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Filter{enabled: enabled}
	f.rules = compileDefaults()

	if patternsFile == "" {
		return f
	}

	loaded, err := loadPatternsFile(patternsFile)
	if err != nil {
		logger.Warn("falling back to default safety patterns",
			slog.String("file", patternsFile),
			slog.String("error", err.Error()),
		)
		return f
	}
	f.rules = loaded
	return f
}

// Check evaluates the transcript. A disabled filter and a blank transcript
// are always safe.
func (f *Filter) Check(transcript string) Result {
	if !f.enabled {
		return Result{Safe: true}
	}

	text := strings.TrimSpace(transcript)
	if text == "" {
		return Result{Safe: true}
	}

	for _, r := range f.rules {
		if r.pattern.MatchString(text) {
			return Result{Safe: false, Reason: r.name}
		}
	}
	return Result{Safe: true}
}

// Enabled reports whether the filter is active.
func (f *Filter) Enabled() bool {
	return f.enabled
}

func compileDefaults() []rule {
	rules := make([]rule, 0, len(defaultRules))
	for _, d := range defaultRules {
		rules = append(rules, rule{
			name:    d.name,
			pattern: regexp.MustCompile(`(?i)` + d.pattern),
		})
	}
	return rules
}

// patternEntry accepts either {"name": ..., "pattern": ...} objects or bare
// pattern strings.
type patternEntry struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

func (p *patternEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Pattern = s
		return nil
	}
	type alias patternEntry
	return json.Unmarshal(data, (*alias)(p))
}

func loadPatternsFile(path string) ([]rule, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}

	var entries []patternEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("parse patterns file: %w", err)
	}

	var rules []rule
	for i, e := range entries {
		pattern := strings.TrimSpace(e.Pattern)
		if pattern == "" {
			continue
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = fmt.Sprintf("custom_pattern_%d", i)
		}
		compiled, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", name, err)
		}
		rules = append(rules, rule{name: name, pattern: compiled})
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("patterns file %s contains no usable rules", path)
	}
	return rules, nil
}
