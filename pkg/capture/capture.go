package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"
	"time"

	errs "albumscan/pkg/errors"
	"albumscan/pkg/models"

	_ "golang.org/x/image/webp"
)

// Fetcher retrieves a resource with the page's own session. It returns
// the bytes and the reported content type, which may be empty.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Pipeline turns the active item into a CapturedAsset
type Pipeline struct {
	now func() time.Time
}

// New creates a capture pipeline
func New() *Pipeline {
	return &Pipeline{now: time.Now}
}

// Capture fetches item, encodes it as a data URI and determines its
// dimensions. Failures are typed fetch or decode errors and yield no asset.
func (p *Pipeline) Capture(ctx context.Context, f Fetcher, item models.Element, id models.ItemIdentity, ordinal int) (*models.CapturedAsset, error) {
	if item.Src == "" {
		return nil, errs.New(errs.ErrorTypeFetch, "item has no source", nil)
	}

	data, contentType, err := f.Fetch(ctx, item.Src)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeFetch, "fetch "+id.StrongKey, err)
	}
	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeFetch, "empty body for "+id.StrongKey, nil)
	}

	width, height := item.NaturalWidth, item.NaturalHeight
	cfg, format, decodeErr := image.DecodeConfig(bytes.NewReader(data))
	if width <= 0 || height <= 0 {
		if decodeErr != nil {
			return nil, errs.New(errs.ErrorTypeDecode, "read image header of "+id.StrongKey, decodeErr)
		}
		width, height = cfg.Width, cfg.Height
	}

	mimeType := mediaType(contentType)
	if !strings.HasPrefix(mimeType, "image/") {
		if decodeErr == nil {
			mimeType = "image/" + format
		} else {
			mimeType = http.DetectContentType(data)
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errs.New(errs.ErrorTypeDecode, "not an image: "+mimeType, nil)
	}

	return &models.CapturedAsset{
		Ordinal:    ordinal,
		Payload:    EncodeDataURI(mimeType, data),
		Width:      width,
		Height:     height,
		MIMEType:   mimeType,
		StrongKey:  id.StrongKey,
		WeakKey:    id.WeakKey,
		SourceURL:  item.Src,
		CapturedAt: p.now(),
	}, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// EncodeDataURI builds a base64 data URI
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its media type and bytes
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errs.New(errs.ErrorTypeDecode, "not a data URI", nil)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errs.New(errs.ErrorTypeDecode, "data URI has no payload", nil)
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errs.New(errs.ErrorTypeDecode, "data URI is not base64", nil)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errs.New(errs.ErrorTypeDecode, "decode data URI", err)
	}
	return mimeType, data, nil
}
