package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"albumscan/pkg/config"
	"albumscan/pkg/logger"
	"albumscan/pkg/storage"
)

// Exporter writes collections into the configured output directory
type Exporter struct {
	cfg     config.ExportConfig
	storage *storage.Manager
	logger  logger.Logger
	now     func() time.Time
}

// NewExporter prepares the output directory
func NewExporter(cfg config.ExportConfig, log logger.Logger) (*Exporter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	mgr, err := storage.NewManager(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	return &Exporter{cfg: cfg, storage: mgr, logger: log.WithField("component", "export"), now: time.Now}, nil
}

// FileName returns the default base name, e.g. Album_2024-05-01T12-00-00
func (e *Exporter) FileName() string {
	prefix := e.cfg.NamePrefix
	if prefix == "" {
		prefix = "Album"
	}
	return prefix + "_" + e.now().UTC().Format("2006-01-02T15-04-05")
}

// Export writes the collection's selection in format (pdf or zip) and
// returns the written path
func (e *Exporter) Export(ctx context.Context, c *Collection, format string) (string, error) {
	if format == "" {
		format = e.cfg.Format
	}

	var write storage.WriteFunc
	switch format {
	case config.FormatPDF:
		write = func(w io.Writer) error { return c.WritePDF(ctx, w, e.cfg.Workers, e.logger) }
	case config.FormatZIP:
		write = func(w io.Writer) error { return c.WriteZip(ctx, w) }
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}

	if len(c.Selected()) == 0 {
		return "", ErrNothingSelected
	}

	start := time.Now()
	name := e.storage.UniqueName(e.FileName(), "."+format)
	path, err := e.storage.Save(name, write)
	if err != nil {
		return "", err
	}

	stats := c.Stats()
	e.logger.InfoWithFields("Export complete", map[string]interface{}{
		"path":     path,
		"format":   format,
		"images":   stats.Selected,
		"total":    stats.Total,
		"duration": time.Since(start).String(),
	})
	return path, nil
}
