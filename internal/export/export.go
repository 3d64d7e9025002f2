// Package export writes result tables to disk in the configured formats.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tgforge/internal/config"
	"tgforge/internal/logger"
	"tgforge/internal/models"
	"tgforge/internal/pipeline"
	"tgforge/pkg/utils"
)

// ErrNothingToExport is returned for a bundle without tables.
var ErrNothingToExport = errors.New("no tables to export")

// Bundle is one set of tables written together.
type Bundle struct {
	// Document is written as the JSON export; the tables are used when nil.
	Document any
	Name     string
	RunID    string
	Kind     string
	Tables   []models.Table
}

// Exporter writes bundles under the output directory.
type Exporter struct {
	cfg config.OutputConfig
	log *logger.Logger
}

// New creates an exporter.
func New(cfg config.OutputConfig, log *logger.Logger) *Exporter {
	return &Exporter{cfg: cfg, log: log}
}

// Export writes b in every configured format concurrently and returns the
// written paths, sorted.
func (e *Exporter) Export(ctx context.Context, b Bundle) ([]string, error) {
	if len(b.Tables) == 0 {
		return nil, ErrNothingToExport
	}

	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var (
		mu    sync.Mutex
		paths []string
	)

	write := func(name string, fn func(io.Writer) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(e.cfg.Dir, name)
		if err := e.writeFile(path, fn); err != nil {
			return err
		}

		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()

		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, format := range e.cfg.Formats {
		switch format {
		case config.FormatCSV:
			for _, t := range b.Tables {
				g.Go(func() error {
					return write(b.Name+"_"+Slug(t.Name)+".csv", func(w io.Writer) error { return WriteCSV(w, t) })
				})
			}
		case config.FormatMD:
			for _, t := range b.Tables {
				g.Go(func() error {
					return write(b.Name+"_"+Slug(t.Name)+".md", func(w io.Writer) error {
						return WriteMarkdown(w, t, e.cfg.MarkdownRowLimit, b.RunID, b.Kind)
					})
				})
			}
		case config.FormatXLSX:
			g.Go(func() error {
				return write(b.Name+".xlsx", func(w io.Writer) error { return WriteExcel(w, b.Tables) })
			})
		case config.FormatJSON:
			g.Go(func() error {
				doc := b.Document
				if doc == nil {
					doc = b.Tables
				}

				return write(b.Name+".json", func(w io.Writer) error { return WriteJSON(w, doc) })
			})
		case config.FormatHTML:
			if len(VolumeTables(b.Tables)) == 0 {
				continue
			}

			g.Go(func() error {
				return write(b.Name+"_volume.html", func(w io.Writer) error {
					return WriteCharts(w, b.Name, b.Tables, true)
				})
			})
		}
	}

	if err := g.Wait(); err != nil {
		return paths, err
	}

	slices.Sort(paths)
	e.log.Info("💾 Exported", "name", b.Name, "files", len(paths), "dir", e.cfg.Dir)

	return paths, nil
}

func (e *Exporter) writeFile(path string, fn func(io.Writer) error) (err error) {
	if e.cfg.CreateBackup {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := os.Rename(path, path+".bak"); err != nil {
				return fmt.Errorf("backing up %s: %w", path, err)
			}

			e.log.Debug("Backed up existing file", "path", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// Slug turns a table name into a file name part.
func Slug(name string) string {
	return strings.ToLower(utils.CleanColumnName(strings.ReplaceAll(strings.TrimSpace(name), " ", "_")))
}

// BundleName names the files of a run started at t.
func BundleName(kind string, t time.Time) string {
	return kind + "_" + t.UTC().Format("20060102_150405")
}

// FromResult bundles every table of a pipeline result. The JSON export is the
// whole result.
func FromResult(res *pipeline.Result) Bundle {
	return Bundle{
		Document: res,
		Name:     BundleName(string(res.Kind), res.Started),
		RunID:    res.RunID,
		Kind:     string(res.Kind),
		Tables:   res.Tables,
	}
}
