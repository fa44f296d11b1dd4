package models

import "regexp"

// VisualKind tags which representation an AlbumVisual carries.
type VisualKind string

const (
	VisualImage VisualKind = "image"
	VisualColor VisualKind = "color"
)

// DefaultAlbumColor is used when an album has neither image nor colour.
const DefaultAlbumColor = "#000000"

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// AlbumVisual is the resolved visual representation of an album: either an
// image path or a hex colour, never both.
type AlbumVisual struct {
	Kind  VisualKind `json:"kind"`
	Value string     `json:"value"`
}

// ImageVisual builds an image variant.
func ImageVisual(path string) AlbumVisual {
	return AlbumVisual{Kind: VisualImage, Value: path}
}

// ColorVisual builds a colour variant.
func ColorVisual(hex string) AlbumVisual {
	return AlbumVisual{Kind: VisualColor, Value: hex}
}

// ResolveAlbumVisual picks the representation for stored album fields. An
// image wins over a colour; invalid or missing colours fall back to
// DefaultAlbumColor.
func ResolveAlbumVisual(image, color string) AlbumVisual {
	if image != "" {
		return ImageVisual(image)
	}
	if IsHexColor(color) {
		return ColorVisual(color)
	}
	return ColorVisual(DefaultAlbumColor)
}

// IsHexColor reports whether s is a #rgb or #rrggbb colour.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}
