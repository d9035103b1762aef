package jobdef

import (
	"github.com/gosimple/slug"
)

// NormalizeKey turns a category or job type into its lookup key using
// gosimple/slug, so "Full Export" and "full-export" match
func NormalizeKey(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}
