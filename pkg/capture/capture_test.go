package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	errs "albumscan/pkg/errors"
	"albumscan/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, url string) ([]byte, string, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return f(ctx, url)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixedPipeline() *Pipeline {
	p := New()
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestCaptureUsesNaturalSize(t *testing.T) {
	data := pngBytes(t, 4, 3)
	f := fetchFunc(func(ctx context.Context, url string) ([]byte, string, error) {
		return data, "image/png", nil
	})

	item := models.Element{Src: "https://cdn.test/a.png?x=1", NaturalWidth: 1600, NaturalHeight: 1200}
	id := models.ItemIdentity{WeakKey: "9", StrongKey: "/a.png"}

	asset, err := fixedPipeline().Capture(context.Background(), f, item, id, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, asset.Ordinal)
	assert.Equal(t, 1600, asset.Width)
	assert.Equal(t, 1200, asset.Height)
	assert.Equal(t, "image/png", asset.MIMEType)
	assert.Equal(t, "/a.png", asset.StrongKey)
	assert.Equal(t, "9", asset.WeakKey)
	assert.Equal(t, item.Src, asset.SourceURL)
	assert.Equal(t, 2024, asset.CapturedAt.Year())

	mt, decoded, err := DecodeDataURI(asset.Payload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, data, decoded)
}

func TestCaptureFallsBackToHeader(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, url string) ([]byte, string, error) {
		return pngBytes(t, 40, 30), "application/octet-stream", nil
	})

	asset, err := fixedPipeline().Capture(context.Background(), f, models.Element{Src: "https://cdn.test/b"}, models.ItemIdentity{StrongKey: "/b"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, asset.Width)
	assert.Equal(t, 30, asset.Height)
	assert.Equal(t, "image/png", asset.MIMEType)
}

func TestCaptureFailures(t *testing.T) {
	tests := []struct {
		name     string
		item     models.Element
		fetch    fetchFunc
		wantType errs.ErrorType
	}{
		{
			name:     "no source",
			item:     models.Element{},
			fetch:    func(context.Context, string) ([]byte, string, error) { return nil, "", nil },
			wantType: errs.ErrorTypeFetch,
		},
		{
			name:     "fetch error",
			item:     models.Element{Src: "https://cdn.test/c.jpg"},
			fetch:    func(context.Context, string) ([]byte, string, error) { return nil, "", errors.New("status 403") },
			wantType: errs.ErrorTypeFetch,
		},
		{
			name:     "empty body",
			item:     models.Element{Src: "https://cdn.test/c.jpg"},
			fetch:    func(context.Context, string) ([]byte, string, error) { return []byte{}, "image/jpeg", nil },
			wantType: errs.ErrorTypeFetch,
		},
		{
			name: "garbage without natural size",
			item: models.Element{Src: "https://cdn.test/c.jpg"},
			fetch: func(context.Context, string) ([]byte, string, error) {
				return []byte("<html>login</html>"), "text/html", nil
			},
			wantType: errs.ErrorTypeDecode,
		},
		{
			name: "html with natural size",
			item: models.Element{Src: "https://cdn.test/c.jpg", NaturalWidth: 10, NaturalHeight: 10},
			fetch: func(context.Context, string) ([]byte, string, error) {
				return []byte("<html>login</html>"), "text/html; charset=utf-8", nil
			},
			wantType: errs.ErrorTypeDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := fixedPipeline().Capture(context.Background(), tt.fetch, tt.item, models.ItemIdentity{StrongKey: "/c.jpg"}, 1)
			assert.Nil(t, asset)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))
			assert.True(t, errs.IsSkippable(err))
		})
	}
}

func TestDecodeDataURIErrors(t *testing.T) {
	for _, uri := range []string{"https://x", "data:image/png;base64", "data:image/png,raw", "data:image/png;base64,@@@"} {
		_, _, err := DecodeDataURI(uri)
		assert.Error(t, err, uri)
	}
}
