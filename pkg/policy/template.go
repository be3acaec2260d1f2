package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Render substitutes every `{{ capture.name.path... }}` placeholder in s
// with the value found in results (as produced by Evaluate), erroring on
// any placeholder that cannot be resolved rather than leaving it verbatim.
func Render(s string, results map[string][]map[string]any) (string, error) {
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		expr := placeholderRe.FindStringSubmatch(match)[1]
		value, err := resolvePlaceholder(expr, results)
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// resolvePlaceholder resolves "capture.<name>.<index>.<field>" against
// results. <index> is optional and defaults to 0.
func resolvePlaceholder(expr string, results map[string][]map[string]any) (string, error) {
	segments := strings.Split(expr, ".")
	if len(segments) < 2 || segments[0] != "capture" {
		return "", fmt.Errorf("policy: template reference %q must start with capture.<name>", expr)
	}
	name := segments[1]
	rows, ok := results[name]
	if !ok {
		return "", fmt.Errorf("policy: template references undefined capture %q", name)
	}

	rest := segments[2:]
	idx := 0
	if len(rest) > 0 {
		if n, err := strconv.Atoi(rest[0]); err == nil {
			idx = n
			rest = rest[1:]
		}
	}
	if idx >= len(rows) {
		return "", fmt.Errorf("policy: capture %q has no row at index %d", name, idx)
	}
	if len(rest) == 0 {
		return "", fmt.Errorf("policy: template reference %q is missing a field name", expr)
	}
	value, err := lookupDotted(rows[idx], rest)
	if err != nil {
		return "", fmt.Errorf("policy: capture %q: %w", name, err)
	}
	return value, nil
}
