package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrSourceNotFound is returned by Source.Open when the input file does not exist.
var ErrSourceNotFound = errors.New("source not found")

const utf8BOM = "\ufeff"

// Source is the input file of one entity type.
type Source struct {
	Entity Entity
	Path   string
}

// Row is one data row of a source file. Fields maps the normalised header
// name to the trimmed cell value.
type Row struct {
	Line   int
	Fields map[string]string
}

// Cell returns the first present value among names.
func (r Row) Cell(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := r.Fields[name]; ok {
			return v, true
		}
	}
	return "", false
}

// ParseError is a malformed row. The reader continues with the next row.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// HeaderError reports required columns missing from a header row.
type HeaderError struct {
	File    string
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: missing required header: %s", e.File, strings.Join(e.Missing, ", "))
}

// RecordReader streams the data rows of an opened Source.
type RecordReader struct {
	file   *os.File
	path   string
	reader *csv.Reader
	header []string
}

// Open opens the source and validates its header. Every entry of required
// lists the accepted spellings of one column; at least one must be present.
// Opening the same Source again restarts from the beginning of the file.
func (s Source) Open(required [][]string) (*RecordReader, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, &HeaderError{File: s.Path, Missing: flattenRequired(required)}
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", s.Path, err)
	}

	normalized := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
		present[normalized[i]] = true
	}

	var missing []string
	for _, names := range required {
		found := false
		for _, name := range names {
			if present[name] {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, names[0])
		}
	}
	if len(missing) > 0 {
		f.Close()
		return nil, &HeaderError{File: s.Path, Missing: missing}
	}

	// Every data row must carry exactly as many fields as the header.
	reader.FieldsPerRecord = len(normalized)

	return &RecordReader{
		file:   f,
		path:   s.Path,
		reader: reader,
		header: normalized,
	}, nil
}

// Header returns the normalised header columns.
func (r *RecordReader) Header() []string {
	return r.header
}

// Rows yields the data rows in file order. Malformed rows are yielded as a
// *ParseError and iteration continues.
func (r *RecordReader) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			record, err := r.reader.Read()
			if err == io.EOF {
				return
			}

			if err != nil {
				line := 0
				var csvErr *csv.ParseError
				if errors.As(err, &csvErr) {
					line = csvErr.StartLine
					err = csvErr.Err
				}
				if !yield(Row{Line: line}, &ParseError{File: r.path, Line: line, Err: err}) {
					return
				}
				continue
			}

			line, _ := r.reader.FieldPos(0)
			row := Row{Line: line, Fields: make(map[string]string, len(record))}
			valid := true
			for i, value := range record {
				if !utf8.ValidString(value) {
					valid = false
					break
				}
				row.Fields[r.header[i]] = strings.TrimSpace(value)
			}
			if !valid {
				parseErr := &ParseError{File: r.path, Line: line, Err: errors.New("invalid UTF-8 encoding")}
				if !yield(Row{Line: line}, parseErr) {
					return
				}
				continue
			}

			if !yield(row, nil) {
				return
			}
		}
	}
}

func (r *RecordReader) Close() error {
	return r.file.Close()
}

func flattenRequired(required [][]string) []string {
	names := make([]string, 0, len(required))
	for _, alts := range required {
		names = append(names, alts[0])
	}
	return names
}
