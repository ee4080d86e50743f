package domain

import "strings"

// MediaKind is the declared class of an uploaded file. Dispatch happens
// on the declared MIME type, never on content sniffing, so a request is
// rejected before any remote resource is created.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
	MediaKindOther MediaKind = "other"
)

// KindFromMime maps a declared MIME type onto a media kind.
func KindFromMime(mimeType string) MediaKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "audio/"):
		return MediaKindAudio
	case strings.HasPrefix(mt, "video/"):
		return MediaKindVideo
	default:
		return MediaKindOther
	}
}
