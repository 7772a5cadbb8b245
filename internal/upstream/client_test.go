package upstream

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics-catalog/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.UpstreamConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		RatePerSecond:  100,
		RateBurst:      100,
	}, nil)
}

func TestListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"asin":"B001","title":"Laptop","price":"₹54,999"},{"name":"Phone"}]`))
	}))
	defer server.Close()

	products, err := testClient(server.URL).ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Laptop", products[0]["title"])
}

func TestSearchProductsUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		require.Equal(t, "gaming laptop", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"asin":"B002","title":"Gaming Laptop"}]}`))
	}))
	defer server.Close()

	products, err := testClient(server.URL).SearchProducts("gaming laptop")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "B002", products[0]["asin"])
}

func TestSuggest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/suggest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["laptop","laptop stand","laptop bag"]`))
	}))
	defer server.Close()

	suggestions, err := testClient(server.URL).Suggest("lap")
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "laptop stand", "laptop bag"}, suggestions)
}

func TestSuggestEmptyResultIsNonNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`null`))
	}))
	defer server.Close()

	suggestions, err := testClient(server.URL).Suggest("zzz")
	require.NoError(t, err)
	require.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestGetProductNormalizesAndKeepsHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/B003", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"asin": "B003",
			"product_name": "Old Camera",
			"raw_price": "₹12,499",
			"price_history": [
				{"timestamp":"2026-01-02T00:00:00Z","raw_price":"12999"},
				{"timestamp":"2026-01-01T00:00:00Z","raw_price":"12499","raw_discount":"-5%"}
			]
		}`))
	}))
	defer server.Close()

	detail, err := testClient(server.URL).GetProduct("B003")
	require.NoError(t, err)

	assert.Equal(t, "B003", detail.ASIN)
	assert.Equal(t, "Old Camera", detail.Title)
	assert.Equal(t, 12499.0, detail.Price)

	require.Len(t, detail.PriceHistory, 2)
	assert.Equal(t, "12999", detail.PriceHistory[0].RawPrice)
	assert.Equal(t, "-5%", detail.PriceHistory[1].RawDiscount)
}

func TestUpstreamErrorStatusIsPropagated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.ListProducts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	_, err = client.Suggest("anything")
	require.Error(t, err)

	_, err = client.GetProduct("B001")
	require.Error(t, err)
}

func TestUnreachableUpstream(t *testing.T) {
	client := testClient("http://127.0.0.1:1")

	_, err := client.ListProducts()
	require.Error(t, err)
}
