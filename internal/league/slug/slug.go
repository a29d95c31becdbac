// Package slug derives URL-safe team identifiers from display names.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var validPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// stripMarks removes combining marks left over after NFD decomposition so
// accented letters fold to their ASCII base.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make derives a slug from a team name: accents folded, lowercased, and
// non-alphanumeric runs collapsed to single hyphens.
func Make(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}

	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		return "", fmt.Errorf("fold name: %w", err)
	}

	var builder strings.Builder
	builder.Grow(len(folded))
	lastHyphen := true // suppress leading hyphens
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				builder.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	made := strings.TrimSuffix(builder.String(), "-")
	if made == "" {
		return "", fmt.Errorf("name has no slug-safe characters")
	}
	return made, nil
}

// Valid reports whether value is a well-formed slug.
func Valid(value string) bool {
	return validPattern.MatchString(value)
}
