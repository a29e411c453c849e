// Package normalize provides the path-normalization rule shared by every
// bookmark store implementation, so "processed" lookups are stable across
// platforms.
package normalize

import "strings"

// Path rewrites backslashes to forward slashes so a bookmark recorded on
// one platform is recognized on another.
func Path(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
