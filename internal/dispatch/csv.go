package dispatch

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tablelink-labs/tablelink/internal/table"
)

// CSVWriter writes one <entity>.csv per stored table into Dir, creating the
// directory if needed.
type CSVWriter struct {
	Dir    string
	Logger *slog.Logger
}

// NewCSVWriter creates a writer targeting dir.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CSVWriter{Dir: dir, Logger: logger}
}

// Write dumps every table, header row first. Cells render via fmt.Sprint;
// nil renders as the empty string.
func (w *CSVWriter) Write(ctx context.Context, store *table.Store) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, name := range store.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, _ := store.Get(name)
		path := filepath.Join(w.Dir, name+".csv")
		if err := w.writeTable(path, t); err != nil {
			return fmt.Errorf("writing %q: %w", name, err)
		}
		w.Logger.Debug("table written", "entity", name, "path", path, "rows", t.NumRows())
	}
	return nil
}

func (w *CSVWriter) writeTable(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	record := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		for j, v := range row {
			if v == nil {
				record[j] = ""
			} else {
				record[j] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
