package youtube

import (
	"fmt"
	"regexp"

	"ytai/internal/domain"
)

var videoIDPattern = regexp.MustCompile(`(?:https?:\/\/)?(?:www\.|m\.)?(?:youtube\.com\/(?:shorts\/|live\/|[^\/\n\s]+\/\S+\/|(?:v|e(?:mbed)?)\/|\S*?[?&]v=)|youtu\.be\/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID returns the 11 character video id of a YouTube url.
// Watch, short, embed, /v/, shorts and live urls are recognized.
func ExtractVideoID(url string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return "", fmt.Errorf("%w: no YouTube video id in %q", domain.ErrInvalidInput, url)
	}
	return m[1], nil
}

// WatchURL returns the canonical watch url of a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
