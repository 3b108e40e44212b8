// Package locator picks the element that represents the item on display.
package locator

import (
	"math"

	"albumscan/pkg/models"
)

// DefaultMinWidth filters out icons, avatars and thumbnails
const DefaultMinWidth = 300

// Locator selects the rendered element nearest the viewport center
type Locator struct {
	MinWidth float64
}

// New creates a locator; a negative width uses the default
func New(minWidth float64) *Locator {
	if minWidth < 0 {
		minWidth = DefaultMinWidth
	}
	return &Locator{MinWidth: minWidth}
}

// Select returns the eligible element whose center is closest to the
// viewport center. Elements must be wider than MinWidth. Ties keep the
// earlier element.
func (l *Locator) Select(elements []models.Element, vp models.Viewport) (models.Element, bool) {
	cx, cy := vp.Width/2, vp.Height/2

	best := -1
	bestDist := math.Inf(1)
	for i, el := range elements {
		if el.Rect.Width <= l.MinWidth {
			continue
		}
		ex, ey := el.Rect.Center()
		if d := math.Hypot(ex-cx, ey-cy); d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return models.Element{}, false
	}
	return elements[best], true
}
