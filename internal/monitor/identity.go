package monitor

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidIdentifier = errors.New("no parsable username")

var profileURLPattern = regexp.MustCompile(`(?i)tiktok\.com/@([^/?]+)`)

// Canonical normalizes a raw target identifier (bare name, @name, profile
// URL, profile URL with /live suffix) into a lowercase username. Two inputs
// that normalize identically refer to the same target.
func Canonical(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidIdentifier
	}
	if m := profileURLPattern.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1]), nil
	}
	s = strings.TrimPrefix(s, "@")
	s, _, _ = strings.Cut(s, "/")
	if s == "" {
		return "", ErrInvalidIdentifier
	}
	return strings.ToLower(s), nil
}
