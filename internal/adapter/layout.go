// Package adapter maps source-specific column names onto the canonical
// MovementRecord fields and decodes raw rows.
package adapter

import (
	"errors"
	"fmt"
	"strings"

	"vehicle-intelligence/internal/config"
)

// Field is a canonical MovementRecord field.
type Field string

const (
	FieldID            Field = "id"
	FieldPlate         Field = "plate"
	FieldEntryTime     Field = "entry_time"
	FieldExitTime      Field = "exit_time"
	FieldPaymentTime   Field = "payment_time"
	FieldAmount        Field = "amount"
	FieldPaymentMethod Field = "payment_method"
	FieldOrganization  Field = "organization"
	FieldVehicleType   Field = "vehicle_type"
	FieldVehicleBrand  Field = "vehicle_brand"
	FieldPlateColor    Field = "plate_color"
)

// Fields lists every canonical field in a stable order.
var Fields = []Field{
	FieldID, FieldPlate, FieldEntryTime, FieldExitTime, FieldPaymentTime, FieldAmount,
	FieldPaymentMethod, FieldOrganization, FieldVehicleType, FieldVehicleBrand, FieldPlateColor,
}

var (
	ErrUnknownLayout = errors.New("unknown source layout")
	ErrMissingColumn = errors.New("required column missing")
)

// Layout names the source column holding each canonical field.
type Layout interface {
	Name() string
	// Column returns the source column for f, or false when the layout has none.
	Column(f Field) (string, bool)
}

type staticLayout struct {
	name    string
	columns map[Field]string
}

func (l staticLayout) Name() string { return l.name }

func (l staticLayout) Column(f Field) (string, bool) {
	c, ok := l.columns[f]
	return c, ok
}

// ParkingRecords is the canonical snake_case table.
var ParkingRecords Layout = staticLayout{
	name: config.LayoutParkingRecords,
	columns: map[Field]string{
		FieldID:            "id",
		FieldPlate:         "plate_number",
		FieldEntryTime:     "entry_time",
		FieldExitTime:      "exit_time",
		FieldPaymentTime:   "payment_time",
		FieldAmount:        "amount_paid",
		FieldPaymentMethod: "payment_method",
		FieldOrganization:  "organization",
		FieldVehicleType:   "vehicle_type",
		FieldVehicleBrand:  "vehicle_brand",
		FieldPlateColor:    "plate_color",
	},
}

// CombinedDataset is the per-site spreadsheet export with Title Case headers.
var CombinedDataset Layout = staticLayout{
	name: config.LayoutCombinedDataset,
	columns: map[Field]string{
		FieldID:            "id",
		FieldPlate:         "Plate Number",
		FieldEntryTime:     "Entry Time",
		FieldExitTime:      "Exit Time",
		FieldPaymentTime:   "Payment Time",
		FieldAmount:        "Amount Paid",
		FieldPaymentMethod: "Payment Method",
		FieldOrganization:  "Organization",
		FieldVehicleType:   "Vehicle Type",
		FieldVehicleBrand:  "Vehicle Brand",
		FieldPlateColor:    "Plate Color",
	},
}

// Detect builds a layout from column-name heuristics. The first matching
// rule wins for each column and each field is bound at most once.
func Detect(columns []string) Layout {
	l := staticLayout{name: config.LayoutAuto, columns: make(map[Field]string)}
	bind := func(f Field, col string) {
		if _, taken := l.columns[f]; !taken {
			l.columns[f] = col
		}
	}

	for _, col := range columns {
		c := strings.ToLower(col)
		has := func(s string) bool { return strings.Contains(c, s) }

		switch {
		case c == "id" || c == "record_id":
			bind(FieldID, col)
		case has("entry") && has("time"):
			bind(FieldEntryTime, col)
		case has("exit") && has("time"):
			bind(FieldExitTime, col)
		case has("payment") && has("time"):
			bind(FieldPaymentTime, col)
		case has("payment") && has("method"):
			bind(FieldPaymentMethod, col)
		case has("amount") || has("paid"):
			bind(FieldAmount, col)
		case has("plate") && has("colo"):
			bind(FieldPlateColor, col)
		case has("plate"):
			bind(FieldPlate, col)
		case has("organization") || has("location"):
			bind(FieldOrganization, col)
		case has("vehicle") && has("type"):
			bind(FieldVehicleType, col)
		case has("vehicle") && has("brand"):
			bind(FieldVehicleBrand, col)
		}
	}
	return l
}

// ForName returns the layout configured by name; "auto" detects it from columns.
func ForName(name string, columns []string) (Layout, error) {
	switch name {
	case config.LayoutParkingRecords:
		return ParkingRecords, nil
	case config.LayoutCombinedDataset:
		return CombinedDataset, nil
	case config.LayoutAuto:
		return Detect(columns), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
}

// Mapping is a layout resolved against the columns a source actually has.
type Mapping struct {
	Layout  Layout
	Columns map[Field]string // present fields only
	Missing []Field          // fields the source cannot provide
}

// Resolve matches layout against the available columns. Fields listed in
// required must be present; every other absent field is reported in Missing.
func Resolve(layout Layout, available []string, required ...Field) (*Mapping, error) {
	have := make(map[string]bool, len(available))
	for _, c := range available {
		have[c] = true
	}

	m := &Mapping{Layout: layout, Columns: make(map[Field]string)}
	for _, f := range Fields {
		col, ok := layout.Column(f)
		if ok && have[col] {
			m.Columns[f] = col
			continue
		}
		m.Missing = append(m.Missing, f)
	}

	for _, f := range required {
		if !m.Has(f) {
			col, _ := layout.Column(f)
			return nil, fmt.Errorf("%w: %s (layout %s, column %q)", ErrMissingColumn, f, layout.Name(), col)
		}
	}
	return m, nil
}

// Has reports whether the source provides f.
func (m *Mapping) Has(f Field) bool {
	_, ok := m.Columns[f]
	return ok
}
