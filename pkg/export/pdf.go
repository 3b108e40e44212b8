package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strconv"

	"albumscan/internal/pool"
	"albumscan/pkg/capture"
	errs "albumscan/pkg/errors"
	"albumscan/pkg/logger"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/webp"
)

func init() {
	// no pdfcpu config directory in the user's home
	model.ConfigPath = "disable"
}

// page is one prepared PDF page
type page struct {
	data     []byte
	rotation int
}

// preparePage decodes the payload; formats the PDF writer cannot embed
// are re-encoded as PNG
func preparePage(ctx context.Context, it Item) (page, error) {
	if err := ctx.Err(); err != nil {
		return page{}, err
	}
	_, data, err := capture.DecodeDataURI(it.Asset.Payload)
	if err != nil {
		return page{}, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return page{}, errs.New(errs.ErrorTypeDecode, "unrecognized image #"+strconv.Itoa(it.Asset.Ordinal), err)
	}
	switch format {
	case "jpeg", "png":
	default:
		data, err = transcodePNG(data)
		if err != nil {
			return page{}, errs.New(errs.ErrorTypeDecode, "transcode "+format+" image #"+strconv.Itoa(it.Asset.Ordinal), err)
		}
	}
	return page{data: data, rotation: it.Rotation}, nil
}

func transcodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePDF writes one page per selected item in current order, each page
// sized to its image and turned by the item's rotation
func (c *Collection) WritePDF(ctx context.Context, w io.Writer, workers int, log logger.Logger) error {
	items := c.Selected()
	if len(items) == 0 {
		return ErrNothingSelected
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	pages, err := pool.Map(ctx, workers, items, preparePage, log)
	if err != nil {
		return errs.New(errs.ErrorTypeExport, "prepare pages", err)
	}

	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return errs.New(errs.ErrorTypeExport, "configure image import", err)
	}
	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		readers[i] = bytes.NewReader(p.data)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, model.NewDefaultConfiguration()); err != nil {
		return errs.New(errs.ErrorTypeExport, "build pdf", err)
	}

	out, err := rotatePages(buf.Bytes(), pages)
	if err != nil {
		return errs.New(errs.ErrorTypeExport, "rotate pages", err)
	}

	if _, err := w.Write(out); err != nil {
		return errs.New(errs.ErrorTypeExport, "write pdf", err)
	}
	log.InfoWithFields("PDF written", map[string]interface{}{
		"pages": len(pages),
		"bytes": len(out),
	})
	return nil
}

func rotatePages(doc []byte, pages []page) ([]byte, error) {
	byRotation := make(map[int][]string)
	for i, p := range pages {
		if p.rotation != 0 {
			byRotation[p.rotation] = append(byRotation[p.rotation], strconv.Itoa(i+1))
		}
	}

	for _, rot := range []int{90, 180, 270} {
		sel := byRotation[rot]
		if len(sel) == 0 {
			continue
		}
		var next bytes.Buffer
		if err := api.Rotate(bytes.NewReader(doc), &next, rot, sel, model.NewDefaultConfiguration()); err != nil {
			return nil, fmt.Errorf("rotate %d: %w", rot, err)
		}
		doc = next.Bytes()
	}
	return doc, nil
}
