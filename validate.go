package torrentcreator

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// reservedNameChars are the characters forbidden from a torrent name.
const reservedNameChars = `<>:"\/|?*`

// ValidateName checks a torrent name, returning the first violation
// found.
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{Message: "Torrent name cannot be empty"}
	}
	if utf8.RuneCountInString(name) > 255 {
		return &ValidationError{Message: "Torrent name cannot be longer than 255 characters"}
	}
	if strings.ContainsAny(name, reservedNameChars) {
		return &ValidationError{Message: fmt.Sprintf("Torrent name cannot contain any of the following characters: %s", reservedNameChars)}
	}
	return nil
}

// splitFields splits text on runs of Unicode whitespace, dropping
// empty tokens.
func splitFields(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// ValidateTrackers splits trackers text into tokens and validates each
// as an absolute URL whose path ends with "announce" or "announce/".
// Returns the ordered, validated tracker list.
func ValidateTrackers(text string) ([]string, error) {
	tokens := splitFields(text)
	for _, t := range tokens {
		u, err := url.Parse(t)
		if err != nil || !u.IsAbs() {
			return nil, &ValidationError{Message: fmt.Sprintf("Tracker %q is not a valid absolute URL", t)}
		}
		if !strings.HasSuffix(u.Path, "announce") && !strings.HasSuffix(u.Path, "announce/") {
			return nil, &ValidationError{Message: fmt.Sprintf("Tracker %q must end with \"announce\" or \"announce/\"", t)}
		}
	}
	return tokens, nil
}

// ValidateWebSeeds splits web seeds text into tokens and validates
// each as a syntactically valid absolute URL.
func ValidateWebSeeds(text string) ([]string, error) {
	tokens := splitFields(text)
	for _, t := range tokens {
		u, err := url.Parse(t)
		if err != nil || !u.IsAbs() {
			return nil, &ValidationError{Message: fmt.Sprintf("Web seed %q is not a valid URL", t)}
		}
	}
	return tokens, nil
}
