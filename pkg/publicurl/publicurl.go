package publicurl

import "strings"

// Absolute prefixes server-relative asset paths with base. Anything not
// starting with "/" is returned unchanged.
func Absolute(base, url string) string {
	if !strings.HasPrefix(url, "/") {
		return url
	}
	return strings.TrimRight(base, "/") + url
}
