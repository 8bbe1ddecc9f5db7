package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Product is a catalog item as returned by GET /products/{id}. Fields the
// cart does not model are kept verbatim in Extra so they survive being
// copied into the cart and written back to storage.
type Product struct {
	ID    int64
	Title string
	Price float64
	Image string
	Extra map[string]json.RawMessage
}

// Stock is the available quantity for a product as returned by GET /stock/{id}.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// productKeys are the JSON keys Product models directly.
var productKeys = []string{"id", "title", "price", "image"}

// MarshalJSON writes the modelled fields and Extra as one flat object.
func (p Product) MarshalJSON() ([]byte, error) {
	fields, err := p.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON reads a flat object, moving unmodelled keys into Extra.
func (p *Product) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decode product: expected object, got null")
	}
	return p.consume(fields)
}

// fields flattens p into a fresh map. An empty Image is written only when
// the decoded source carried the key, which consume leaves in Extra.
func (p Product) fields() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+len(productKeys)+1)
	maps.Copy(out, p.Extra)

	modelled := map[string]any{"id": p.ID, "title": p.Title, "price": p.Price}
	if p.Image != "" {
		modelled["image"] = p.Image
	}
	for key, v := range modelled {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode product %s: %w", key, err)
		}
		out[key] = raw
	}
	return out, nil
}

// consume decodes the modelled keys out of fields and keeps the rest as
// Extra. An empty or null image stays in Extra so it is written back as it
// came in. Extra stays nil when nothing is left over.
func (p *Product) consume(fields map[string]json.RawMessage) error {
	targets := map[string]any{"id": &p.ID, "title": &p.Title, "price": &p.Price, "image": &p.Image}
	for _, key := range productKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, targets[key]); err != nil {
			return fmt.Errorf("decode product %s: %w", key, err)
		}
		if key == "image" && p.Image == "" {
			continue
		}
		delete(fields, key)
	}

	p.Extra = nil
	if len(fields) > 0 {
		p.Extra = fields
	}
	return nil
}

// Clone returns a copy whose Extra map is not shared with p.
func (p Product) Clone() Product {
	if p.Extra != nil {
		p.Extra = maps.Clone(p.Extra)
	}
	return p
}
