package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SlotKey is the fixed name of the storage slot holding the cart.
const SlotKey = "cart"

// Cart is the ordered list of items. A nil Cart is the "no cart" sentinel.
type Cart []Item

// Decode parses the slot text. Only a JSON array of objects is accepted.
func Decode(value string) (Cart, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	if items == nil {
		// the literal null
		return nil, fmt.Errorf("%w: not a list", ErrCorruptCart)
	}

	c := make(Cart, 0, len(items))
	for n, raw := range items {
		item, err := ParseItem(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptCart, n, err)
		}
		c = append(c, item)
	}
	return c, nil
}

// Encode renders the cart as slot text. An empty cart encodes as "[]".
// Field order and caller text are kept as stored.
func (c Cart) Encode() (string, error) {
	if c == nil {
		c = Cart{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]Item(c)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// IndexOf returns the position of the first item with the given id, or -1.
func (c Cart) IndexOf(id Identifier) int {
	for n, item := range c {
		if item.ID().Equal(id) {
			return n
		}
	}
	return -1
}

func (c Cart) Contains(id Identifier) bool {
	return c.IndexOf(id) >= 0
}

// Without returns a copy of the cart minus every item with the given id.
func (c Cart) Without(id Identifier) Cart {
	kept := make(Cart, 0, len(c))
	for _, item := range c {
		if !item.ID().Equal(id) {
			kept = append(kept, item)
		}
	}
	return kept
}

// Total sums the item subtotals. A NaN subtotal makes the total NaN.
func (c Cart) Total() float64 {
	var sum float64
	for _, item := range c {
		sum += item.Subtotal()
	}
	return sum
}

// Clone copies the cart so callers can mutate items without touching c.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	for n, item := range c {
		out[n] = item.clone()
	}
	return out
}
