package qtable

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedTable is returned when a persisted table or key cannot be decoded
var ErrMalformedTable = errors.New("malformed value table")

// Kind is the type of a single key field
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindMultiset
	// KindAbsent marks an optional field that carries no value
	KindAbsent
	// KindOptionalMultiset is only used in schemas: the field may be a
	// multiset or absent.
	KindOptionalMultiset
)

var kindNames = map[Kind]string{
	KindInt:              "int",
	KindBool:             "bool",
	KindMultiset:         "multiset",
	KindAbsent:           "absent",
	KindOptionalMultiset: "multiset?",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field kind %q", ErrMalformedTable, s)
}

// accepts reports whether a field of kind f may appear where the schema
// expects k.
func (k Kind) accepts(f Kind) bool {
	if k == KindOptionalMultiset {
		return f == KindMultiset || f == KindAbsent
	}
	return k == f
}

const (
	tagInt      = "i"
	tagBool     = "b"
	tagMultiset = "m"
	tagAbsent   = "n"
)

// Field is one typed component of a state key
type Field struct {
	Kind Kind
	Int  int
	Bool bool
	// Multiset maps an item to its count. Zero counts are ignored.
	Multiset map[int]int
}

// IntField returns an integer field
func IntField(v int) Field { return Field{Kind: KindInt, Int: v} }

// BoolField returns a boolean field
func BoolField(v bool) Field { return Field{Kind: KindBool, Bool: v} }

// MultisetField returns a multiset field
func MultisetField(m map[int]int) Field { return Field{Kind: KindMultiset, Multiset: m} }

// AbsentField returns the placeholder for a missing optional value
func AbsentField() Field { return Field{Kind: KindAbsent} }

// Key is implemented by every state key stored in a Table. Fields must be a
// pure function of the key so equal keys encode identically.
type Key interface {
	comparable
	Fields() []Field
}

// Schema describes one key shape and how to rebuild keys from fields
type Schema[K Key] struct {
	Name   string
	Kinds  []Kind
	Decode func([]Field) (K, error)
}

func (s Schema[K]) kindNames() []string {
	names := make([]string, len(s.Kinds))
	for i, k := range s.Kinds {
		names[i] = k.String()
	}
	return names
}

// check validates decoded fields against the schema
func (s Schema[K]) check(fields []Field) error {
	if len(fields) != len(s.Kinds) {
		return fmt.Errorf("%w: key has %d fields, %s expects %d", ErrMalformedTable, len(fields), s.Name, len(s.Kinds))
	}
	for i, f := range fields {
		if !s.Kinds[i].accepts(f.Kind) {
			return fmt.Errorf("%w: field %d is %s, %s expects %s", ErrMalformedTable, i, f.Kind, s.Name, s.Kinds[i])
		}
	}
	return nil
}

// EncodeKey renders fields in the canonical "tag:value|tag:value" form
func EncodeKey(fields []Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('|')
		}
		switch f.Kind {
		case KindInt:
			sb.WriteString(tagInt + ":" + strconv.Itoa(f.Int))
		case KindBool:
			sb.WriteString(tagBool + ":" + strconv.FormatBool(f.Bool))
		case KindMultiset:
			sb.WriteString(tagMultiset + ":" + encodeMultiset(f.Multiset))
		default:
			sb.WriteString(tagAbsent + ":")
		}
	}
	return sb.String()
}

func encodeMultiset(m map[int]int) string {
	items := make([]int, 0, len(m))
	for item, n := range m {
		if n != 0 {
			items = append(items, item)
		}
	}
	sort.Ints(items)

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = strconv.Itoa(item) + "*" + strconv.Itoa(m[item])
	}
	return strings.Join(parts, ",")
}

// DecodeKey parses a canonical key back into fields
func DecodeKey(s string) ([]Field, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", ErrMalformedTable)
	}
	parts := strings.Split(s, "|")
	fields := make([]Field, len(parts))
	for i, part := range parts {
		tag, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: field %q has no tag", ErrMalformedTable, part)
		}
		f, err := decodeField(tag, value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedTable, part, err)
		}
		fields[i] = f
	}
	return fields, nil
}

func decodeField(tag, value string) (Field, error) {
	switch tag {
	case tagInt:
		v, err := strconv.Atoi(value)
		if err != nil {
			return Field{}, err
		}
		return IntField(v), nil
	case tagBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return Field{}, err
		}
		return BoolField(v), nil
	case tagMultiset:
		m, err := decodeMultiset(value)
		if err != nil {
			return Field{}, err
		}
		return MultisetField(m), nil
	case tagAbsent:
		if value != "" {
			return Field{}, errors.New("absent field carries a value")
		}
		return AbsentField(), nil
	default:
		return Field{}, fmt.Errorf("unknown tag %q", tag)
	}
}

func decodeMultiset(s string) (map[int]int, error) {
	m := make(map[int]int)
	if s == "" {
		return m, nil
	}
	for _, entry := range strings.Split(s, ",") {
		item, count, ok := strings.Cut(entry, "*")
		if !ok {
			return nil, fmt.Errorf("multiset entry %q is not item*count", entry)
		}
		i, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("multiset count for %d must be positive", i)
		}
		if _, dup := m[i]; dup {
			return nil, fmt.Errorf("duplicate multiset item %d", i)
		}
		m[i] = n
	}
	return m, nil
}
