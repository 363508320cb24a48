package team

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// interpolate resolves {placeholder} tokens in a task description from the
// team inputs. Unresolved placeholders are left literal.
func interpolate(template string, inputs map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := inputs[key]; ok {
			return value
		}
		return match
	})
}
