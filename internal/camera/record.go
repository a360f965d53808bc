package camera

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one validated camera row. It is never mutated after ReadCSV.
type Record struct {
	Username    string
	Password    string
	Address     string
	DisplayName string
}

// Required CSV header columns, in the order they are reported.
const (
	ColumnUsername = "Username"
	ColumnPassword = "Password"
	ColumnIP       = "IP"
	ColumnName     = "Camera Name"
)

var requiredColumns = []string{ColumnUsername, ColumnPassword, ColumnIP, ColumnName}

// ErrNoCameras is returned when input handling leaves zero usable records.
var ErrNoCameras = errors.New("no valid camera data found")

// ErrMissingColumns matches any *MissingColumnsError via errors.Is.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError reports required header columns absent from the input.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// RowWarning describes a row that was skipped.
type RowWarning struct {
	Row     int
	Columns []string // blank required columns, if that was the reason
	Invalid []string // columns that are not valid UTF-8, if that was the reason
	Address string   // rejected address, if that was the reason
}

func (w RowWarning) String() string {
	if len(w.Columns) > 0 {
		return fmt.Sprintf("row %d has missing data in columns: %s", w.Row, strings.Join(w.Columns, ", "))
	}
	if len(w.Invalid) > 0 {
		return fmt.Sprintf("row %d has invalid UTF-8 in columns: %s", w.Row, strings.Join(w.Invalid, ", "))
	}
	return fmt.Sprintf("row %d has invalid IP format: %s", w.Row, w.Address)
}
