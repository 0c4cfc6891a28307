package store

import "fmt"

// AssetKind is a binary rendition of a photo library item.
type AssetKind string

const (
	AssetThumbnail AssetKind = "thumbnail"
	AssetImage     AssetKind = "image"
	AssetVideo     AssetKind = "video"
	AssetLiveVideo AssetKind = "live-video"
)

// ThumbnailSize selects the thumbnail variant.
type ThumbnailSize string

const (
	ThumbnailSmall  ThumbnailSize = "small"
	ThumbnailMedium ThumbnailSize = "medium"
)

// Pixels returns the long-edge size of the variant.
func (s ThumbnailSize) Pixels() int {
	if s == ThumbnailSmall {
		return 200
	}
	return 800
}

// AssetKey identifies one asset of one item.
type AssetKey struct {
	PhotoID string
	Kind    AssetKind
	Size    ThumbnailSize
}

func (k AssetKey) String() string {
	if k.Kind == AssetThumbnail {
		return fmt.Sprintf("%s/%s/%s", k.PhotoID, k.Kind, k.Size)
	}
	return fmt.Sprintf("%s/%s", k.PhotoID, k.Kind)
}

// Asset is a resident binary payload.
type Asset struct {
	Data     []byte
	MimeType string
}

// Supports reports whether the item has a rendition of the given kind.
func (p Photo) Supports(kind AssetKind) bool {
	switch kind {
	case AssetThumbnail, AssetImage:
		return true
	case AssetVideo:
		return p.MediaType == MediaVideo || p.MediaType == MediaLivePhoto
	case AssetLiveVideo:
		return p.MediaType == MediaLivePhoto
	}
	return false
}

// MimeType returns the content type of the given rendition of p.
func MimeType(p Photo, kind AssetKind) string {
	switch kind {
	case AssetThumbnail:
		return "image/jpeg"
	case AssetImage:
		if p.ImageFormat == "heic" {
			return "image/heic"
		}
		return "image/jpeg"
	case AssetVideo, AssetLiveVideo:
		if p.VideoFormat == "mov" {
			return "video/quicktime"
		}
		return "video/mp4"
	}
	return "application/octet-stream"
}
