package provider

import (
	"path"
	"strings"
)

// cleanPath normalizes a logical path to a slash-separated path relative to
// the project root. ".." can never climb above the root; the root itself is
// "".
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
