package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartEntry is one product line in the cart. It serializes as the product's
// catalog object with an added "amount" key.
type CartEntry struct {
	Product
	Amount int
}

// NewEntry copies p into a cart entry holding amount units. A catalog field
// named "amount" is dropped so it cannot shadow the quantity.
func NewEntry(p Product, amount int) CartEntry {
	p = p.Clone()
	delete(p.Extra, "amount")
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	return CartEntry{Product: p, Amount: amount}
}

// MarshalJSON implements json.Marshaler.
func (e CartEntry) MarshalJSON() ([]byte, error) {
	fields, err := e.Product.fields()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(e.Amount)
	if err != nil {
		return nil, err
	}
	fields["amount"] = raw
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *CartEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode cart entry: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decode cart entry: expected object, got null")
	}

	e.Amount = 0
	if raw, ok := fields["amount"]; ok {
		if err := json.Unmarshal(raw, &e.Amount); err != nil {
			return fmt.Errorf("decode cart entry amount: %w", err)
		}
		delete(fields, "amount")
	}
	return e.Product.consume(fields)
}

// Subtotal is price times amount.
func (e CartEntry) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(e.Price).Mul(decimal.NewFromInt(int64(e.Amount)))
}

// Cart is the ordered list of entries, in insertion order. Product IDs are
// unique within a cart.
type Cart []CartEntry

// MarshalJSON writes an empty cart as [] rather than null.
func (c Cart) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]CartEntry(c))
}

// Index returns the position of productID in c, or -1.
func (c Cart) Index(productID int64) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

// Find returns the entry for productID.
func (c Cart) Find(productID int64) (CartEntry, bool) {
	if i := c.Index(productID); i >= 0 {
		return c[i], true
	}
	return CartEntry{}, false
}

// ItemCount is the sum of all amounts.
func (c Cart) ItemCount() int {
	n := 0
	for _, e := range c {
		n += e.Amount
	}
	return n
}

// Total is the sum of all subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c {
		total = total.Add(e.Subtotal())
	}
	return total
}

// Clone returns a deep copy. The result is never nil.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for i, e := range c {
		out[i] = CartEntry{Product: e.Product.Clone(), Amount: e.Amount}
	}
	return out
}

// DecodeCart parses a persisted cart blob.
func DecodeCart(blob string) (Cart, error) {
	var c Cart
	if err := json.Unmarshal([]byte(blob), &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c == nil {
		c = Cart{}
	}
	return c, nil
}

// Encode serializes c for persistence.
func (c Cart) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(raw), nil
}
