package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"albumscan/pkg/capture"
	errs "albumscan/pkg/errors"
)

// ManifestEntry describes one archived image
type ManifestEntry struct {
	File       string    `json:"file"`
	Position   int       `json:"position"`
	Ordinal    int       `json:"ordinal"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MIMEType   string    `json:"mime_type"`
	Rotation   int       `json:"rotation,omitempty"`
	LowRes     bool      `json:"low_res,omitempty"`
	StrongKey  string    `json:"strong_key"`
	WeakKey    string    `json:"weak_key,omitempty"`
	SourceURL  string    `json:"source_url"`
	CapturedAt time.Time `json:"captured_at"`
}

// Manifest is written as manifest.json next to the images
type Manifest struct {
	SessionID  string          `json:"session_id,omitempty"`
	SourceURL  string          `json:"source_url,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Images     []ManifestEntry `json:"images"`
}

// WriteZip writes the selected items as image_001.<ext>... in current
// order, followed by manifest.json
func (c *Collection) WriteZip(ctx context.Context, w io.Writer) error {
	items := c.Selected()
	if len(items) == 0 {
		return ErrNothingSelected
	}

	zw := zip.NewWriter(w)
	manifest := Manifest{
		SessionID:  c.SessionID,
		SourceURL:  c.SourceURL,
		ExportedAt: time.Now().UTC(),
		Count:      len(items),
	}

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		mimeType, data, err := capture.DecodeDataURI(it.Asset.Payload)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("image_%03d%s", i+1, extensionFor(mimeType))

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: it.Asset.CapturedAt,
		})
		if err != nil {
			return errs.New(errs.ErrorTypeExport, "add "+name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return errs.New(errs.ErrorTypeExport, "write "+name, err)
		}

		manifest.Images = append(manifest.Images, ManifestEntry{
			File:       name,
			Position:   i + 1,
			Ordinal:    it.Asset.Ordinal,
			Width:      it.Asset.Width,
			Height:     it.Asset.Height,
			MIMEType:   mimeType,
			Rotation:   it.Rotation,
			LowRes:     it.LowRes(c.lowRes),
			StrongKey:  it.Asset.StrongKey,
			WeakKey:    it.Asset.WeakKey,
			SourceURL:  it.Asset.SourceURL,
			CapturedAt: it.Asset.CapturedAt,
		})
	}

	mw, err := zw.Create("manifest.json")
	if err != nil {
		return errs.New(errs.ErrorTypeExport, "add manifest", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return errs.New(errs.ErrorTypeExport, "encode manifest", err)
	}

	if err := zw.Close(); err != nil {
		return errs.New(errs.ErrorTypeExport, "finish archive", err)
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch sub := strings.TrimPrefix(mimeType, "image/"); sub {
	case "jpeg", "jpg", "pjpeg":
		return ".jpg"
	case "png", "gif", "webp", "bmp", "avif":
		return "." + sub
	default:
		return ".bin"
	}
}
