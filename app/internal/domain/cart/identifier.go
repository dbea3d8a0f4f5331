package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type idKind uint8

const (
	kindNull idKind = iota
	kindBool
	kindNumber
	kindString
	// objects and arrays
	kindOther
)

// Identifier distinguishes one Item from another. Two strings are equal only
// when they are identical; a string compared with a number or a boolean is
// converted to a number first.
type Identifier struct {
	kind idKind
	num  float64
	str  string
	raw  json.RawMessage
}

func StringID(s string) Identifier {
	raw, _ := json.Marshal(s)
	return Identifier{kind: kindString, str: s, raw: raw}
}

func NumberID(f float64) Identifier {
	return Identifier{kind: kindNumber, num: f, raw: formatNumber(f)}
}

// ParseIdentifier reads an identifier from its JSON form. Missing input is
// treated like null.
func ParseIdentifier(raw json.RawMessage) (Identifier, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Identifier{kind: kindNull, raw: json.RawMessage("null")}, nil
	}

	switch raw[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, raw)
		}
		if b {
			return Identifier{kind: kindBool, num: 1, raw: json.RawMessage("true")}, nil
		}
		return Identifier{kind: kindBool, num: 0, raw: json.RawMessage("false")}, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, raw)
		}
		return Identifier{kind: kindString, str: s, raw: append(json.RawMessage(nil), raw...)}, nil
	case '{', '[':
		return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, raw)
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, raw)
	}
	return Identifier{kind: kindNumber, num: f, raw: append(json.RawMessage(nil), raw...)}, nil
}

// ParseIdentifierText builds an identifier from free text such as a URL path
// segment or a command-line argument. JSON literals are honoured, anything
// else is taken as a plain string.
func ParseIdentifierText(s string) Identifier {
	if json.Valid([]byte(s)) {
		if id, err := ParseIdentifier(json.RawMessage(s)); err == nil {
			return id
		}
	}
	return StringID(s)
}

// Equal reports whether both identifiers name the same item.
func (id Identifier) Equal(other Identifier) bool {
	switch {
	case id.kind == kindOther || other.kind == kindOther:
		return false
	case id.kind == kindNull || other.kind == kindNull:
		return id.kind == other.kind
	case id.kind == kindString && other.kind == kindString:
		return id.str == other.str
	}
	// NaN never equals anything, -0 equals 0
	return id.number() == other.number()
}

func (id Identifier) number() float64 {
	if id.kind == kindString {
		return StringToNumber(id.str)
	}
	return id.num
}

// IsZero reports whether the identifier is null or was never set.
func (id Identifier) IsZero() bool {
	return id.kind == kindNull
}

// String returns the identifier as the caller wrote it, without JSON quoting.
func (id Identifier) String() string {
	if len(id.raw) > 0 && id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(id.raw, &s); err == nil {
			return s
		}
	}
	if len(id.raw) == 0 {
		return "null"
	}
	return string(id.raw)
}

func (id Identifier) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	parsed, err := ParseIdentifier(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
