package manifest

import "strings"

// CanonicalSource normalizes a declared source into the stable identity
// used as the deduplication key everywhere: shorthand 'owner/repo'
// expands to a GitHub URL, trailing slashes and a trailing '.git'
// suffix are stripped.
func CanonicalSource(source string) string {
	s := strings.TrimSpace(source)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	if s == "" {
		return s
	}
	if isShorthand(s) {
		s = "https://github.com/" + s
	}
	return s
}

// isShorthand reports whether s looks like 'owner/repo' with no scheme
// or host of its own.
func isShorthand(s string) bool {
	if strings.Contains(s, "://") || strings.Contains(s, "@") {
		return false
	}
	parts := strings.Split(s, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// DirName maps an identity onto a filesystem-safe directory name under
// the install root. The mapping must be injective so that the installed
// set and the lock store stay in one-to-one correspondence.
func DirName(identity string) string {
	s := identity
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	// scp-like syntax: git@host:owner/repo
	if at := strings.Index(s, "@"); at >= 0 {
		s = s[at+1:]
		s = strings.Replace(s, ":", "/", 1)
	}
	return strings.ReplaceAll(s, "/", "__")
}
