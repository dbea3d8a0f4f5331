package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

const (
	fieldID       = "id"
	fieldPrice    = "price"
	fieldQuantity = "quantity"
)

type field struct {
	name  string
	value json.RawMessage
}

// Item is one cart line. Apart from id, price and quantity its fields belong
// to the caller and are stored verbatim, in the order they were written.
type Item struct {
	fields []field
}

// NewItem builds an item from Go values. Each field value is JSON encoded;
// an "id" entry in fields is replaced by id. The id comes first, the other
// fields follow in name order.
func NewItem(id Identifier, fields map[string]any) (Item, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != fieldID {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	idRaw, _ := id.MarshalJSON()
	item := Item{fields: make([]field, 0, len(names)+1)}
	item.set(fieldID, idRaw)
	for _, name := range names {
		raw, err := json.Marshal(fields[name])
		if err != nil {
			return Item{}, fmt.Errorf("%w: field %q: %v", ErrInvalidItem, name, err)
		}
		item.set(name, raw)
	}
	return item, nil
}

// ParseItem reads an item from a JSON object.
func ParseItem(data []byte) (Item, error) {
	var item Item
	if err := item.UnmarshalJSON(data); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (i Item) get(name string) (json.RawMessage, bool) {
	for _, f := range i.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

// set replaces the value in place, or appends a new field.
func (i *Item) set(name string, value json.RawMessage) {
	for n := range i.fields {
		if i.fields[n].name == name {
			i.fields[n].value = value
			return
		}
	}
	i.fields = append(i.fields, field{name: name, value: value})
}

// ID returns the item identifier; an item without one has the null identifier.
func (i Item) ID() Identifier {
	raw, _ := i.get(fieldID)
	id, err := ParseIdentifier(raw)
	if err != nil {
		return Identifier{kind: kindOther, raw: raw}
	}
	return id
}

// Price returns the numeric price. Non-numeric prices are NaN.
func (i Item) Price() float64 {
	raw, _ := i.get(fieldPrice)
	return jsonToNumber(raw)
}

// Quantity returns the stored quantity, or 1 when it is absent or falsy.
func (i Item) Quantity() float64 {
	raw, ok := i.get(fieldQuantity)
	if !ok || isFalsy(raw) {
		return 1
	}
	return jsonToNumber(raw)
}

// Subtotal is Price times Quantity.
func (i Item) Subtotal() float64 {
	return i.Price() * i.Quantity()
}

// SetQuantity overwrites the quantity field. No range check is applied.
func (i *Item) SetQuantity(q float64) {
	i.set(fieldQuantity, formatNumber(q))
}

// Field returns the raw JSON of a caller field.
func (i Item) Field(name string) (json.RawMessage, bool) {
	return i.get(name)
}

// FieldNames lists the item's fields in stored order.
func (i Item) FieldNames() []string {
	names := make([]string, len(i.fields))
	for n, f := range i.fields {
		names[n] = f.name
	}
	return names
}

func (i Item) clone() Item {
	return Item{fields: append([]field(nil), i.fields...)}
}

// MarshalJSON writes the fields in stored order without HTML escaping.
func (i Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for n, f := range i.fields {
		if n > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, f.name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object token by token so field order survives. A
// repeated name keeps its first position and its last value.
func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("%w: item must be a JSON object", ErrInvalidItem)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	var item Item
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidItem, err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected token %v", ErrInvalidItem, tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidItem, name, err)
		}
		item.set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after object", ErrInvalidItem)
	}

	*i = item
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
