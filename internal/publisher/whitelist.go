package publisher

import "strings"

// MatchesWhitelist reports whether normalizedURL is permitted by patterns
// (spec.md §4.2). An empty or absent list allows everything; "*" matches
// everything; any other entry is treated as a prefix after being reduced
// to either a full-URL prefix, a leading-"/" path prefix, or a bare
// host/path prefix.
func MatchesWhitelist(normalizedURL string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if matchesPattern(normalizedURL, p) {
			return true
		}
	}
	return false
}

func matchesPattern(normalizedURL, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	switch {
	case strings.Contains(pattern, "://"):
		return strings.HasPrefix(normalizedURL, pattern)
	case strings.HasPrefix(pattern, "/"):
		return strings.HasPrefix(pathOf(normalizedURL), pattern)
	default:
		// bare host/path: match if it appears right after the scheme, or
		// as a path-prefix on the normalized URL.
		return strings.Contains(normalizedURL, "://"+pattern) || strings.HasPrefix(pathOf(normalizedURL), "/"+pattern)
	}
}

func pathOf(normalizedURL string) string {
	idx := strings.Index(normalizedURL, "://")
	if idx == -1 {
		return normalizedURL
	}
	rest := normalizedURL[idx+3:]
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return "/"
	}
	return rest[slash:]
}
