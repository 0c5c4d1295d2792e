package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	t.Run("sends a well-formed request and returns the result", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":"0x64"}`))
		}))
		defer server.Close()

		result, err := NewClient(server.URL).Fetch(t.Context(), "eth_blockNumber")
		require.NoError(t, err)

		assert.Equal(t, json.RawMessage(`"0x64"`), result)
		assert.Equal(t, "2.0", received["jsonrpc"])
		assert.Equal(t, "eth_blockNumber", received["method"])
		assert.NotEmpty(t, received["id"])
		assert.Empty(t, received["params"])
	})

	t.Run("parameters are forwarded in order", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":null}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Fetch(t.Context(), "eth_getBlockByNumber", "latest", false)
		require.NoError(t, err)

		assert.Equal(t, []any{"latest", false}, received["params"])
	})

	t.Run("custom headers are attached to every request", func(t *testing.T) {
		var apiKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey = r.Header.Get("X-Api-Key")
			w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":null}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, WithHeader("X-Api-Key", "secret"))

		_, err := client.Fetch(t.Context(), "eth_blockNumber")
		require.NoError(t, err)

		assert.Equal(t, "secret", apiKey)
	})

	t.Run("error responses surface the sentinel and the code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Fetch(t.Context(), "eth_unknownMethod")

		require.ErrorIs(t, err, ErrProviderReturnedError)

		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32601, rpcErr.Code)
		assert.Contains(t, rpcErr.Error(), "method not found")
	})

	t.Run("malformed responses fail with the method name", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Fetch(t.Context(), "eth_blockNumber")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "eth_blockNumber")
	})
}
