package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sneaker(id int64, price float64) Product {
	return Product{ID: id, Title: "Tênis", Price: price, Image: "https://cdn.example/t.jpg"}
}

func TestNewEntry_SerializesFlat(t *testing.T) {
	c := Cart{NewEntry(Product{ID: 2, Title: "X", Price: 10}, 1)}

	blob, err := c.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":2,"title":"X","price":10,"amount":1}]`, blob)
}

func TestCartEntry_PreservesUnknownFields(t *testing.T) {
	in := `[{"id":1,"title":"Tênis","price":179.9,"image":"a.jpg","brand":"Rocket","sizes":[38,39],"amount":3}]`

	c, err := DecodeCart(in)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, int64(1), c[0].ID)
	assert.Equal(t, 3, c[0].Amount)
	assert.JSONEq(t, `"Rocket"`, string(c[0].Extra["brand"]))
	assert.NotContains(t, c[0].Extra, "amount")

	out, err := c.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, in, out)
}

func TestCartEntry_KeepsEmptyImage(t *testing.T) {
	for _, in := range []string{
		`[{"id":1,"title":"A","price":10,"image":"","amount":1}]`,
		`[{"id":1,"title":"A","price":10,"image":null,"amount":1}]`,
		`[{"id":1,"title":"A","price":10,"amount":1}]`,
	} {
		c, err := DecodeCart(in)
		require.NoError(t, err)
		assert.Empty(t, c[0].Image)

		out, err := c.Encode()
		require.NoError(t, err)
		assert.JSONEq(t, in, out)
	}
}

func TestCartEntry_ImageSetAfterDecodeWins(t *testing.T) {
	c, err := DecodeCart(`[{"id":1,"title":"A","price":10,"image":"","amount":1}]`)
	require.NoError(t, err)

	c[0].Image = "b.jpg"
	out, err := c.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"A","price":10,"image":"b.jpg","amount":1}]`, out)
}

func TestNewEntry_DropsCatalogAmount(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":4,"title":"Y","price":1,"amount":99}`), &p))
	require.Contains(t, p.Extra, "amount")

	e := NewEntry(p, 1)
	assert.Nil(t, e.Extra)
	assert.Contains(t, p.Extra, "amount", "source product must not be mutated")

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"title":"Y","price":1,"amount":1}`, string(raw))
}

func TestProduct_UnmarshalRejectsWrongTypes(t *testing.T) {
	var p Product
	assert.Error(t, json.Unmarshal([]byte(`{"id":"one"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`null`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &p))
}

func TestDecodeCart(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		wantLen int
		wantErr bool
	}{
		{name: "empty array", blob: `[]`, wantLen: 0},
		{name: "null", blob: `null`, wantLen: 0},
		{name: "two entries", blob: `[{"id":1,"amount":1},{"id":2,"amount":5}]`, wantLen: 2},
		{name: "not json", blob: `{{`, wantErr: true},
		{name: "object instead of array", blob: `{"id":1}`, wantErr: true},
		{name: "bad amount", blob: `[{"id":1,"amount":"x"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeCart(tt.blob)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
			assert.Len(t, c, tt.wantLen)
		})
	}
}

func TestCart_EmptyEncodesAsArray(t *testing.T) {
	var c Cart
	blob, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, "[]", blob)
}

func TestCart_FindAndIndex(t *testing.T) {
	c := Cart{NewEntry(sneaker(1, 10), 1), NewEntry(sneaker(7, 20), 2)}

	assert.Equal(t, 1, c.Index(7))
	assert.Equal(t, -1, c.Index(3))

	e, ok := c.Find(7)
	require.True(t, ok)
	assert.Equal(t, 2, e.Amount)

	_, ok = c.Find(3)
	assert.False(t, ok)
}

func TestCart_Totals(t *testing.T) {
	c := Cart{NewEntry(sneaker(1, 139.9), 2), NewEntry(sneaker(2, 0.1), 3)}

	assert.Equal(t, 5, c.ItemCount())
	assert.True(t, decimal.RequireFromString("280.1").Equal(c.Total()), c.Total().String())
	assert.True(t, decimal.RequireFromString("0.3").Equal(c[1].Subtotal()))
}

func TestCart_CloneIsDeep(t *testing.T) {
	p := sneaker(1, 10)
	p.Extra = map[string]json.RawMessage{"brand": json.RawMessage(`"Rocket"`)}
	c := Cart{NewEntry(p, 1)}

	clone := c.Clone()
	clone[0].Amount = 9
	clone[0].Extra["brand"] = json.RawMessage(`"Other"`)

	assert.Equal(t, 1, c[0].Amount)
	assert.JSONEq(t, `"Rocket"`, string(c[0].Extra["brand"]))
	assert.NotNil(t, Cart(nil).Clone())
}
