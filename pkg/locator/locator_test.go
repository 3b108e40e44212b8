package locator

import (
	"testing"

	"albumscan/pkg/models"

	"github.com/stretchr/testify/assert"
)

func el(src string, x, y, w, h float64) models.Element {
	return models.Element{Src: src, Rect: models.Rect{X: x, Y: y, Width: w, Height: h}}
}

func TestSelect(t *testing.T) {
	vp := models.Viewport{Width: 1200, Height: 800}
	l := New(DefaultMinWidth)

	tests := []struct {
		name     string
		elements []models.Element
		want     string
		found    bool
	}{
		{
			name:  "no elements",
			found: false,
		},
		{
			name: "only small elements",
			elements: []models.Element{
				el("avatar", 590, 390, 40, 40),
				el("thumb", 0, 0, 300, 300),
			},
			found: false,
		},
		{
			name: "centered wins over larger offset",
			elements: []models.Element{
				el("side", 0, 0, 900, 700),
				el("main", 300, 150, 600, 500),
			},
			want:  "main",
			found: true,
		},
		{
			name: "small centered icon ignored",
			elements: []models.Element{
				el("icon", 580, 380, 40, 40),
				el("photo", 100, 100, 500, 400),
			},
			want:  "photo",
			found: true,
		},
		{
			name: "tie keeps document order",
			elements: []models.Element{
				el("first", 100, 200, 400, 400),
				el("second", 700, 200, 400, 400),
			},
			want:  "first",
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.Select(tt.elements, vp)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got.Src)
			}
		})
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	l := New(DefaultMinWidth)
	vp := models.Viewport{Width: 1000, Height: 1000}
	elements := []models.Element{
		el("a", 0, 0, 400, 400),
		el("b", 300, 300, 400, 400),
		el("c", 600, 600, 400, 400),
	}

	first, _ := l.Select(elements, vp)
	for i := 0; i < 5; i++ {
		again, _ := l.Select(elements, vp)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "b", first.Src)
}

func TestNewDefaults(t *testing.T) {
	assert.Equal(t, float64(DefaultMinWidth), New(-1).MinWidth)
	assert.Equal(t, float64(0), New(0).MinWidth)
}
