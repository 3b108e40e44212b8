package models

import "time"

// Rect is an element's rendered bounding box in CSS pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Viewport is the visible area of the page
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a rendered media element as reported by the page surface
type Element struct {
	Src           string `json:"src"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
	Rect          Rect   `json:"rect"`
}

// ItemIdentity identifies the item currently on display.
// WeakKey comes from the page URL and may be empty; StrongKey is the
// normalized resource path and is the durable de-duplication key.
type ItemIdentity struct {
	WeakKey   string `json:"weak_key,omitempty"`
	StrongKey string `json:"strong_key"`
}

// Changed reports whether next represents a different displayed item.
// A weak key change always counts; a strong key change only counts when
// the new key is known.
func (id ItemIdentity) Changed(next ItemIdentity) bool {
	if next.WeakKey != id.WeakKey {
		return true
	}
	return next.StrongKey != "" && next.StrongKey != id.StrongKey
}

// CapturedAsset is one captured media item in traversal order
type CapturedAsset struct {
	Ordinal    int       `json:"ordinal"`
	Payload    string    `json:"payload"` // data URI
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MIMEType   string    `json:"mime_type"`
	StrongKey  string    `json:"strong_key"`
	WeakKey    string    `json:"weak_key,omitempty"`
	SourceURL  string    `json:"source_url"`
	CapturedAt time.Time `json:"captured_at"`

	// Rotation is written only by the export stage
	Rotation int `json:"rotation,omitempty"`
}
