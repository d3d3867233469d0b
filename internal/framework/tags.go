package framework

import (
	"fmt"
	"strings"
)

// Render formats a framework's tags as "Framework: tag1, tag2".
func Render(framework string, tags []string) string {
	return framework + ": " + strings.Join(tags, ", ")
}

// ParseTag splits a rendered tag string on its first colon and then on
// commas. It is the inverse of Render.
func ParseTag(s string) (string, []string, error) {
	name, rest, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("framework tag %q: expected \"Framework: tag, tag\"", s)
	}
	var tags []string
	for _, t := range strings.Split(rest, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return "", nil, fmt.Errorf("framework tag %q: no tags after framework name", s)
	}
	return name, tags, nil
}

// ParseTags reverses a rendered framework_tags list into per-framework tag
// lists. Repeated frameworks are merged.
func ParseTags(rendered []string) (map[string][]string, error) {
	out := make(map[string][]string, len(rendered))
	for _, s := range rendered {
		name, tags, err := ParseTag(s)
		if err != nil {
			return nil, err
		}
		out[name] = append(out[name], tags...)
	}
	return out, nil
}
