package matcher

import "strings"

// NormalizeHandle reduces a social handle or link to a comparison key.
// "@FooBar", "foobar" and "https://x.com/FooBar?ref=1" all become "foobar".
func NormalizeHandle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")

	// Cut query and fragment before looking at the path.
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	// Drop a leading domain ("x.com/", "t.me/").
	if i := strings.Index(s, "/"); i >= 0 && strings.Contains(s[:i], ".") {
		s = s[i+1:]
	}

	s = strings.TrimPrefix(s, "@")

	// Keep only the first path segment.
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}

// matchSocials returns the configured handles that correspond to any of the links,
// in configured order.
func matchSocials(handles, links []string) []string {
	keys := make([]string, 0, len(links))
	for _, l := range links {
		if k := NormalizeHandle(l); k != "" {
			keys = append(keys, k)
		}
	}

	var matched []string
	for _, h := range handles {
		target := NormalizeHandle(h)
		if target == "" {
			continue
		}
		for _, k := range keys {
			if strings.Contains(k, target) || strings.Contains(target, k) {
				matched = append(matched, h)
				break
			}
		}
	}
	return matched
}
