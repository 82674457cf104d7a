// Package ledger appends one row per run to a spreadsheet log of trends,
// scripts and scene keywords.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trend-shorts/logging"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheet = "Sheet1"

// Header is the first row of a new ledger.
var Header = []string{"DateTime", "Trend", "GeneratedScript", "RelatedKeywords"}

// Entry is one ledger row
type Entry struct {
	Time     time.Time
	Trend    string
	Script   string
	Keywords string // rendered scene plan, "keyword: Ns, ..."
}

// Ledger is an append-only .xlsx file
type Ledger struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// New returns a ledger backed by path. The file is created on first Append.
func New(path string) *Ledger {
	return &Ledger{path: path, logger: logging.WithComponent("ledger")}
}

// Append adds entry after the last used row, writing the header first if the
// file does not exist yet.
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read ledger rows: %w", err)
	}
	next := len(rows) + 1
	if next == 1 {
		if err := setRow(f, 1, Header); err != nil {
			return err
		}
		next = 2
	}

	row := []string{e.Time.Format("2006-01-02 15:04:05"), e.Trend, e.Script, e.Keywords}
	if err := setRow(f, next, row); err != nil {
		return err
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	l.logger.Info().Str("file", l.path).Int("row", next).Msg("ledger updated")
	return nil
}

func (l *Ledger) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(l.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return excelize.NewFile(), nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write ledger row %d: %w", n, err)
	}
	return nil
}
