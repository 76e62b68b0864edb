package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"vehicle-intelligence/internal/domain"
)

// ErrEmptyWorkbook is returned for a sheet without a header row.
var ErrEmptyWorkbook = errors.New("workbook sheet has no header row")

// ReadWorkbook loads movement records from an .xlsx export. The first row of
// the sheet is the header. When the layout has no id column present, records
// are numbered by their 1-based data row. An empty sheet name reads the first sheet.
func ReadWorkbook(path, sheet, layoutName string, loc *time.Location) (*Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		index[header[i]] = i
	}

	layout, err := ForName(layoutName, header)
	if err != nil {
		return nil, err
	}
	mapping, err := Resolve(layout, header)
	if err != nil {
		return nil, err
	}

	dec := NewDecoder(loc)
	dec.SerialDates = true

	batch := &Batch{Layout: layout.Name()}
	for _, f := range mapping.Missing {
		if f != FieldID {
			batch.Missing = append(batch.Missing, f)
		}
	}
	for n, values := range rows[1:] {
		if blank(values) {
			continue
		}
		row := mapping.Row(values, index)
		if !mapping.Has(FieldID) {
			row[FieldID] = strconv.Itoa(n + 1)
		}
		rec, issues := dec.Decode(row)
		batch.Records = append(batch.Records, rec)
		batch.Issues = append(batch.Issues, issues...)
	}
	return batch, nil
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WorkbookSource serves one sheet of a workbook as a movement source. The
// sheet is read once; later loads return the same batch.
type WorkbookSource struct {
	path   string
	sheet  string
	layout string
	loc    *time.Location

	once  sync.Once
	batch *Batch
	err   error
}

// NewWorkbookSource creates a source for the sheet at path.
func NewWorkbookSource(path, sheet, layout string, loc *time.Location) *WorkbookSource {
	return &WorkbookSource{path: path, sheet: sheet, layout: layout, loc: loc}
}

// LoadMovements reads the sheet on first use.
func (s *WorkbookSource) LoadMovements(_ context.Context) (*Batch, error) {
	s.once.Do(func() {
		s.batch, s.err = ReadWorkbook(s.path, s.sheet, s.layout, s.loc)
	})
	return s.batch, s.err
}

// WriteWorkbook saves records with their derived feature values to a new
// .xlsx file, one row per record in id order. Raw fields use the
// parking_records column names; NULL features are left blank.
func WriteWorkbook(path string, records []*domain.MovementRecord, values map[int64]map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	features := domain.FeatureColumnNames()

	header := make([]interface{}, 0, len(Fields)+len(features))
	for _, field := range Fields {
		col, _ := ParkingRecords.Column(field)
		header = append(header, col)
	}
	for _, name := range features {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sorted := make([]*domain.MovementRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for n, r := range sorted {
		row := []interface{}{
			r.ID, r.Plate, timeCell(r.EntryTime), timeCell(r.ExitTime), timeCell(r.PaymentTime),
			floatCell(r.Amount), r.PaymentMethod, r.Organization, r.VehicleType, r.VehicleBrand, r.PlateColor,
		}
		feats := values[r.ID]
		for _, name := range features {
			row = append(row, feats[name])
		}

		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write record %d: %w", r.ID, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func timeCell(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
