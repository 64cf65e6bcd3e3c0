package utils

import "regexp"

var (
	youtubeLinkPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\s?]+)`)
	youtubeIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// YouTubeID extracts the video id from a watch, short or embed link, or a bare id.
func YouTubeID(link string) string {
	if m := youtubeLinkPattern.FindStringSubmatch(link); len(m) > 1 {
		return m[1]
	}
	if youtubeIDPattern.MatchString(link) {
		return link
	}
	return ""
}

// YouTubeThumbnail returns "" when the link is not a YouTube video.
func YouTubeThumbnail(link string) string {
	id := YouTubeID(link)
	if id == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
}
