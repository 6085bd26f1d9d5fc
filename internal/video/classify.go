package video

import (
	"regexp"
	"strings"
)

// RefShape classification of a raw video reference, exactly one applies
type RefShape int

const (
	ShapeEmpty RefShape = iota
	ShapeYouTube
	ShapeLocal
	ShapeAbsolute
	ShapeStorageKey
)

func (s RefShape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeYouTube:
		return "youtube"
	case ShapeLocal:
		return "local"
	case ShapeAbsolute:
		return "absolute"
	}
	return "storage_key"
}

var (
	youTubePattern   = regexp.MustCompile(`(?i)(youtube\.com/watch\?|youtu\.be/|youtube\.com/embed/)`)
	youTubeIDPattern = regexp.MustCompile(`(?i:youtube\.com/watch\?(?:[^#]*&)?v=|youtu\.be/|youtube\.com/embed/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)
)

// Classify total over strings, storage key is the catch-all.
// A youtube hostname wins over an absolute url.
func Classify(ref string, localPrefixes []string) RefShape {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ShapeEmpty
	}
	if youTubePattern.MatchString(ref) {
		return ShapeYouTube
	}
	for _, prefix := range localPrefixes {
		if prefix != "" && strings.HasPrefix(ref, prefix) {
			return ShapeLocal
		}
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ShapeAbsolute
	}
	return ShapeStorageKey
}

// ExtractYouTubeID returns the 11 character video id of a youtube url
func ExtractYouTubeID(ref string) (string, bool) {
	matches := youTubeIDPattern.FindStringSubmatch(ref)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// YouTubeEmbedURL ...
func YouTubeEmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}
