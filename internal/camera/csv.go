package camera

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

const utf8BOM = "\ufeff"

// ReadCSV parses a camera list. A row is skipped and reported as a warning,
// not an error, when a required field is blank or not valid UTF-8, or when
// its address is not dotted-numeric. An input with no usable rows returns
// ErrNoCameras.
func ReadCSV(r io.Reader) ([]Record, []RowWarning, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &MissingColumnsError{Columns: append([]string(nil), requiredColumns...)}
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &MissingColumnsError{Columns: missing}
	}

	var (
		records  []Record
		warnings []RowWarning
	)
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		var blank []string
		for _, col := range requiredColumns {
			if get(col) == "" {
				blank = append(blank, col)
			}
		}
		if len(blank) > 0 {
			warnings = append(warnings, RowWarning{Row: row, Columns: blank})
			continue
		}

		var invalid []string
		for _, col := range requiredColumns {
			if !utf8.ValidString(get(col)) {
				invalid = append(invalid, col)
			}
		}
		if len(invalid) > 0 {
			warnings = append(warnings, RowWarning{Row: row, Invalid: invalid})
			continue
		}

		rec := Record{
			Username:    get(ColumnUsername),
			Password:    get(ColumnPassword),
			Address:     get(ColumnIP),
			DisplayName: get(ColumnName),
		}
		if !LooksLikeIPv4(rec.Address) {
			warnings = append(warnings, RowWarning{Row: row, Address: rec.Address})
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, warnings, ErrNoCameras
	}
	return records, warnings, nil
}

// ReadFile opens path and parses it with ReadCSV.
func ReadFile(path string) ([]Record, []RowWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open camera list: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// LooksLikeIPv4 is a purely syntactic check: once dots are removed the
// remainder must be non-empty and all digits. It accepts "999.1" and
// rejects hostnames; callers rely on exactly that shape.
func LooksLikeIPv4(address string) bool {
	digits := strings.ReplaceAll(address, ".", "")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
