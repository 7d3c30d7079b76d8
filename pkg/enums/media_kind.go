package enums

import "fmt"

// MediaKind categorizes uploaded objects.
type MediaKind string

const (
	MediaKindAudioSource MediaKind = "audio_source"
	MediaKindAlbumCover  MediaKind = "album_cover"
	MediaKindPortrait    MediaKind = "portrait"
	MediaKindBandPhoto   MediaKind = "band_photo"
	MediaKindAvatar      MediaKind = "avatar"
	MediaKindOther       MediaKind = "other"
)

var validMediaKinds = []MediaKind{
	MediaKindAudioSource,
	MediaKindAlbumCover,
	MediaKindPortrait,
	MediaKindBandPhoto,
	MediaKindAvatar,
	MediaKindOther,
}

// String implements fmt.Stringer.
func (m MediaKind) String() string {
	return string(m)
}

// IsValid reports whether the kind is known.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	for _, candidate := range validMediaKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
