package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"albumscan/pkg/capture"
	"albumscan/pkg/config"
	"albumscan/pkg/handoff"
	"albumscan/pkg/logger"
	"albumscan/pkg/models"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, format string, w, h int) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	img := solid(w, h)
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "gif":
		require.NoError(t, gif.Encode(&buf, img, nil))
	}
	return "image/" + format, buf.Bytes()
}

func asset(t *testing.T, ordinal int, format string, w, h int) models.CapturedAsset {
	mimeType, data := encoded(t, format, w, h)
	return models.CapturedAsset{
		Ordinal:    ordinal,
		Payload:    capture.EncodeDataURI(mimeType, data),
		Width:      w,
		Height:     h,
		MIMEType:   mimeType,
		StrongKey:  "/img/" + format,
		SourceURL:  "https://cdn.test/img/" + format,
		CapturedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sampleCollection(t *testing.T) *Collection {
	return NewCollection([]models.CapturedAsset{
		asset(t, 1, "jpeg", 64, 48),
		asset(t, 2, "png", 32, 32),
		asset(t, 3, "gif", 24, 40),
	}, 0)
}

func ordinals(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Asset.Ordinal
	}
	return out
}

func TestItemViewData(t *testing.T) {
	it := Item{Asset: models.CapturedAsset{Payload: "abcd", Width: 800, Height: 600}}
	assert.Equal(t, 3, it.ByteSize())
	assert.Equal(t, Landscape, it.Aspect())
	assert.False(t, it.LowRes(600))

	it.Asset.Width, it.Asset.Height = 500, 500
	assert.Equal(t, Square, it.Aspect())
	assert.True(t, it.LowRes(600))

	it.Asset.Width, it.Asset.Height = 600, 1200
	assert.Equal(t, Portrait, it.Aspect())
	assert.False(t, it.LowRes(600))
}

func TestCollectionStartsSelectedInCaptureOrder(t *testing.T) {
	c := sampleCollection(t)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{1, 2, 3}, ordinals(c.Selected()))
	assert.True(t, c.LowRes(0))

	s := c.Stats()
	assert.Equal(t, 3, s.Selected)
	assert.Equal(t, 3, s.Total)
	assert.Greater(t, s.SelectedBytes, 0)
}

func TestCollectionMove(t *testing.T) {
	c := NewCollection([]models.CapturedAsset{{Ordinal: 1}, {Ordinal: 2}, {Ordinal: 3}, {Ordinal: 4}}, 0)

	require.NoError(t, c.Move(0, 2))
	assert.Equal(t, []int{2, 3, 1, 4}, ordinals(c.Items()))

	require.NoError(t, c.Move(3, 0))
	assert.Equal(t, []int{4, 2, 3, 1}, ordinals(c.Items()))

	require.NoError(t, c.Move(1, 1))
	assert.Error(t, c.Move(0, 4))
	assert.Error(t, c.Move(-1, 0))
}

func TestCollectionSelection(t *testing.T) {
	c := NewCollection([]models.CapturedAsset{{Ordinal: 1}, {Ordinal: 2}, {Ordinal: 3}}, 0)

	require.NoError(t, c.Toggle(1))
	assert.Equal(t, []int{1, 3}, ordinals(c.Selected()))

	c.Invert()
	assert.Equal(t, []int{2}, ordinals(c.Selected()))

	c.SelectAll()
	assert.Len(t, c.Selected(), 3)

	assert.Error(t, c.Toggle(3))
}

func TestCollectionRotate(t *testing.T) {
	c := NewCollection([]models.CapturedAsset{{Ordinal: 1}}, 0)

	require.NoError(t, c.Rotate(0, 90))
	require.NoError(t, c.Rotate(0, 270))
	assert.Equal(t, 0, c.Items()[0].Rotation)

	require.NoError(t, c.Rotate(0, -90))
	assert.Equal(t, 270, c.Items()[0].Rotation)

	assert.Error(t, c.Rotate(0, 45))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2 MB", FormatBytes(2*1024*1024))
}

func TestLoadTakesBundle(t *testing.T) {
	ctx := context.Background()
	store, err := handoff.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "k", &handoff.Bundle{
		SessionID: "k",
		SourceURL: "https://viewer.test/photo?fbid=1",
		Assets:    []models.CapturedAsset{asset(t, 1, "png", 10, 10)},
	}))

	c, err := Load(ctx, store, "k", 600)
	require.NoError(t, err)
	assert.Equal(t, "k", c.SessionID)
	assert.Equal(t, 1, c.Len())

	_, err = Load(ctx, store, "k", 600)
	assert.ErrorIs(t, err, handoff.ErrNotFound)
}

func TestWriteZip(t *testing.T) {
	c := sampleCollection(t)
	require.NoError(t, c.Move(2, 0))
	require.NoError(t, c.Toggle(2))

	var buf bytes.Buffer
	require.NoError(t, c.WriteZip(context.Background(), &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"image_001.gif", "image_002.jpg", "manifest.json"}, names)

	rc, err := zr.File[2].Open()
	require.NoError(t, err)
	defer rc.Close()
	var m Manifest
	require.NoError(t, json.NewDecoder(rc).Decode(&m))
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, 3, m.Images[0].Ordinal)
	assert.Equal(t, 1, m.Images[1].Ordinal)
	assert.Equal(t, "image/jpeg", m.Images[1].MIMEType)

	first, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(first)
	first.Close()
	require.NoError(t, err)
	_, want, _ := capture.DecodeDataURI(c.Items()[0].Asset.Payload)
	assert.Equal(t, want, data)
}

func TestWritersRequireSelection(t *testing.T) {
	c := sampleCollection(t)
	c.Invert()

	assert.ErrorIs(t, c.WriteZip(context.Background(), io.Discard), ErrNothingSelected)
	assert.ErrorIs(t, c.WritePDF(context.Background(), io.Discard, 2, nil), ErrNothingSelected)
}

func TestWritePDF(t *testing.T) {
	c := sampleCollection(t)
	require.NoError(t, c.Rotate(1, 90))

	var buf bytes.Buffer
	require.NoError(t, c.WritePDF(context.Background(), &buf, 2, logger.NewTestLogger()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	n, err := api.PageCount(bytes.NewReader(buf.Bytes()), model.NewDefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPreparePageTranscodesGIF(t *testing.T) {
	c := sampleCollection(t)
	p, err := preparePage(context.Background(), c.Items()[2])
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(p.data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	jp, err := preparePage(context.Background(), c.Items()[0])
	require.NoError(t, err)
	_, format, err = image.DecodeConfig(bytes.NewReader(jp.data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestExporter(t *testing.T) {
	cfg := config.DefaultConfig().Export
	cfg.OutputDir = t.TempDir()
	cfg.Format = config.FormatZIP

	e, err := NewExporter(cfg, nil)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	assert.Equal(t, "Album_2024-05-01T12-30-00", e.FileName())

	c := sampleCollection(t)
	path, err := e.Export(context.Background(), c, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "Album_2024-05-01T12-30-00.zip"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	path, err = e.Export(context.Background(), c, "")
	require.NoError(t, err)
	assert.Equal(t, "Album_2024-05-01T12-30-00_2.zip", filepath.Base(path))

	_, err = e.Export(context.Background(), c, "tiff")
	assert.Error(t, err)
}
