//go:build integration

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive a running cart service wired to a catalog that serves
// product 1 with stock of at least 2. Set CART_URL to point elsewhere.

func cartURL() string {
	if u := os.Getenv("CART_URL"); u != "" {
		return u
	}
	return "http://localhost:8003"
}

// skipIfNotRunning skips, rather than fails, when the service is unreachable.
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(cartURL() + "/health/live")
	if err != nil {
		t.Skipf("cart service at %s not reachable: %v", cartURL(), err)
	}
	resp.Body.Close()
}

type cartBody struct {
	Data struct {
		Items []struct {
			ID     int64 `json:"id"`
			Amount int   `json:"amount"`
		} `json:"items"`
		ItemCount int `json:"item_count"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, session, method, path string, body any) (int, cartBody) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, cartURL()+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", session)

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out cartBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCartFlow(t *testing.T) {
	skipIfNotRunning(t)
	session := fmt.Sprintf("it-%d", time.Now().UnixNano())

	status, body := do(t, session, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, 1, body.Data.Items[0].Amount)

	status, body = do(t, session, http.MethodPut, "/api/v1/cart/items/1", map[string]any{"amount": 2})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Data.ItemCount)

	status, body = do(t, session, http.MethodPut, "/api/v1/cart/items/1", map[string]any{"amount": 1_000_000})
	require.Equal(t, http.StatusConflict, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Quantidade solicitada fora de estoque", body.Error.Message)

	status, body = do(t, session, http.MethodDelete, "/api/v1/cart/items/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Data.Items)

	status, body = do(t, session, http.MethodDelete, "/api/v1/cart/items/1", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Erro na remoção do produto", body.Error.Message)
}
