package adapter

import (
	"vehicle-intelligence/internal/domain"
)

// Batch is a materialized snapshot of source records.
type Batch struct {
	Layout  string
	Records []*domain.MovementRecord
	Missing []Field       // fields the source could not provide
	Issues  []*FieldError // values that failed to decode
}

// Row converts positional values into a Row using the resolved mapping.
// index maps source column name to position.
func (m *Mapping) Row(values []string, index map[string]int) Row {
	row := make(Row, len(m.Columns))
	for f, col := range m.Columns {
		if i, ok := index[col]; ok && i < len(values) {
			row[f] = values[i]
		}
	}
	return row
}
