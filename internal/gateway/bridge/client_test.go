package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BridgeConfig{
		APIURL:         srv.URL + "/api",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	client.SetHTTPClient(srv.Client())
	return client, srv
}

func TestCheckBulk(t *testing.T) {
	t.Run("bare array with results out of request order", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/check-bulk", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			var reqs []BulkCheckRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
			require.Len(t, reqs, 2)
			w.Write([]byte(`[{"login":1002,"equity":9800.5,"balance":9900},{"login":1001,"equity":10100,"balance":10000}]`))
		})
		results, err := client.CheckBulk(context.Background(), []BulkCheckRequest{{Login: 1001}, {Login: 1002}})
		require.NoError(t, err)
		require.Len(t, results, 2)
		// Correlation is the caller's job; order is whatever the bridge
		// returned.
		assert.Equal(t, int64(1002), results[0].Login)
		assert.Equal(t, 9800.5, results[0].Equity)
		assert.Equal(t, int64(1001), results[1].Login)
	})

	t.Run("enveloped payload variants parse the same", func(t *testing.T) {
		for _, body := range []string{
			`{"results":[{"login":1,"equity":2,"balance":3}]}`,
			`{"accounts":[{"login":1,"equity":2,"balance":3}]}`,
			`{"data":[{"login":1,"equity":2,"balance":3}]}`,
		} {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(body))
			})
			results, err := client.CheckBulk(context.Background(), []BulkCheckRequest{{Login: 1}})
			require.NoError(t, err, body)
			require.Len(t, results, 1, body)
			assert.Equal(t, 2.0, results[0].Equity)
		}
	})

	t.Run("empty request list is a no-op", func(t *testing.T) {
		client, _ := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
			t.Fatal("no request expected")
		})
		results, err := client.CheckBulk(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("non-2xx surfaces as a transport error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gateway exploded", http.StatusBadGateway)
		})
		_, err := client.CheckBulk(context.Background(), []BulkCheckRequest{{Login: 1}})
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("malformed body surfaces as a transport error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`<html>proxy error</html>`))
		})
		_, err := client.CheckBulk(context.Background(), []BulkCheckRequest{{Login: 1}})
		require.Error(t, err)
		assert.True(t, IsTransport(err))
	})
}

func TestFetchTrades(t *testing.T) {
	t.Run("query carries the login and payload normalizes", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/trades", r.URL.Path)
			assert.Equal(t, "1001", r.URL.Query().Get("login"))
			w.Write([]byte(`{"trades":[{"ticket":7,"symbol":"eurusd","type":1,"volume":150,"price":1.085,"profit":-20.5,"time":1774000000,"close_time":0}]}`))
		})
		trades, err := client.FetchTrades(context.Background(), 1001)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, int64(7), trades[0].Ticket)
		assert.Equal(t, "EURUSD", trades[0].Symbol)
		assert.Equal(t, 1, trades[0].Type)
		assert.Equal(t, 150.0, trades[0].Volume)
		assert.Equal(t, int64(0), trades[0].CloseTime)
	})

	t.Run("zero login is rejected client-side", func(t *testing.T) {
		client, _ := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := client.FetchTrades(context.Background(), 0)
		assert.Error(t, err)
	})
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	ctx := context.Background()
	var lastErr error
	// Default threshold is 5 consecutive failures.
	for i := 0; i < 6; i++ {
		_, lastErr = client.CheckBulk(ctx, []BulkCheckRequest{{Login: 1}})
		require.Error(t, lastErr)
	}
	assert.ErrorIs(t, lastErr, ErrBreakerOpen)
}

func TestDegenerate(t *testing.T) {
	t.Run("zero equity is always degenerate", func(t *testing.T) {
		res := BulkCheckResult{Login: 1, Equity: 0, Balance: 9_500}
		assert.True(t, res.Degenerate(10_000, 9_500))
	})

	t.Run("balance stuck at initial while tracked moved", func(t *testing.T) {
		res := BulkCheckResult{Login: 1, Equity: 10_000, Balance: 10_000}
		assert.True(t, res.Degenerate(10_000, 9_500))
	})

	t.Run("fresh account legitimately at initial balance", func(t *testing.T) {
		res := BulkCheckResult{Login: 1, Equity: 10_000, Balance: 10_000}
		assert.False(t, res.Degenerate(10_000, 10_000))
	})

	t.Run("normal reading is not degenerate", func(t *testing.T) {
		res := BulkCheckResult{Login: 1, Equity: 9_400, Balance: 9_500}
		assert.False(t, res.Degenerate(10_000, 9_500))
	})
}
