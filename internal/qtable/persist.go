package qtable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/fileutil"
)

const fileVersion = 1

type document struct {
	Version int                           `json:"version"`
	Shape   string                        `json:"shape"`
	Fields  []string                      `json:"fields"`
	Entries map[string]map[string]float64 `json:"entries"`
}

// Save writes the table to path atomically
func (t *Table[K]) Save(path string, schema Schema[K]) error {
	if path == "" {
		return errors.New("destination path is required")
	}
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return t.Encode(w, schema)
	})
}

// Encode writes the table as an indented JSON document
func (t *Table[K]) Encode(w io.Writer, schema Schema[K]) error {
	doc := document{
		Version: fileVersion,
		Shape:   schema.Name,
		Fields:  schema.kindNames(),
		Entries: make(map[string]map[string]float64, len(t.rows)),
	}
	for key, row := range t.rows {
		values := make(map[string]float64, len(row))
		for _, a := range env.Actions {
			values[strconv.Itoa(int(a))] = row[a]
		}
		doc.Entries[EncodeKey(key.Fields())] = values
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode value table: %w", err)
	}
	return nil
}

// Load reads a table saved with Save
func Load[K Key](path string, schema Schema[K]) (*Table[K], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(f, schema)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Decode reads a JSON document and validates it against schema. Any
// structural problem is reported as ErrMalformedTable.
func Decode[K Key](r io.Reader, schema Schema[K]) (*Table[K], error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if doc.Version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedTable, doc.Version)
	}
	if doc.Shape != schema.Name {
		return nil, fmt.Errorf("%w: table holds %q keys, expected %q", ErrMalformedTable, doc.Shape, schema.Name)
	}
	if len(doc.Fields) != len(schema.Kinds) {
		return nil, fmt.Errorf("%w: table declares %d fields, expected %d", ErrMalformedTable, len(doc.Fields), len(schema.Kinds))
	}
	for i, name := range doc.Fields {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if k != schema.Kinds[i] {
			return nil, fmt.Errorf("%w: field %d declared %s, expected %s", ErrMalformedTable, i, k, schema.Kinds[i])
		}
	}

	t := New[K]()
	for encoded, values := range doc.Entries {
		fields, err := DecodeKey(encoded)
		if err != nil {
			return nil, err
		}
		if EncodeKey(fields) != encoded {
			return nil, fmt.Errorf("%w: key %q is not in canonical form", ErrMalformedTable, encoded)
		}
		if err := schema.check(fields); err != nil {
			return nil, err
		}
		key, err := schema.Decode(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedTable, encoded, err)
		}
		if _, dup := t.rows[key]; dup {
			return nil, fmt.Errorf("%w: key %q duplicates another entry", ErrMalformedTable, encoded)
		}
		row, err := decodeRow(values)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedTable, encoded, err)
		}
		t.rows[key] = row
	}
	return t, nil
}

func decodeRow(values map[string]float64) (*ActionValues, error) {
	if len(values) != env.NumActions {
		return nil, fmt.Errorf("expected %d actions, got %d", env.NumActions, len(values))
	}
	row := &ActionValues{}
	for idx, q := range values {
		a, err := strconv.Atoi(idx)
		if err != nil || !env.Action(a).Valid() {
			return nil, fmt.Errorf("unknown action %q", idx)
		}
		row[a] = q
	}
	return row, nil
}
