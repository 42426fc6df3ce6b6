package feeds

import (
	"regexp"
	"strings"

	"instaplan/models"
)

var videoPattern = regexp.MustCompile(`(?i)\.(mp4|mov|avi|webm|mkv|m4v)(\?|$)`)

// Classify decides how a post is displayed. A non-blank explicit type
// always wins, otherwise several refs make a carousel and a single ref
// with a video extension makes a video.
func Classify(refs []models.MediaRef, explicitType string) models.MediaType {
	if explicit := strings.TrimSpace(explicitType); explicit != "" {
		return models.MediaType(explicit)
	}

	if len(refs) > 1 {
		return models.MediaCarousel
	}

	if len(refs) == 1 && isVideo(refs[0]) {
		return models.MediaVideo
	}

	return models.MediaImage
}

func isVideo(ref models.MediaRef) bool {
	return videoPattern.MatchString(ref.Name) || videoPattern.MatchString(ref.Url())
}
