package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"shopmetrics-catalog/internal/catalog"
	"shopmetrics-catalog/internal/config"
	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/pkg/cache"
)

// Client talks to the remote price-tracking API. All endpoints return
// JSON; outbound calls are paced by a token-bucket limiter and listing
// responses go through the redis cache when one is connected.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.RedisCache
}

func NewClient(cfg config.UpstreamConfig, responseCache *cache.RedisCache) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cache:   responseCache,
	}
}

// ListProducts fetches the unfiltered catalog.
func (c *Client) ListProducts() ([]models.RawProduct, error) {
	return c.cachedListing(c.cache.ListingKey(""), c.baseURL+"/products")
}

// SearchProducts fetches the catalog already filtered by the remote
// search index. The response wraps the collection in a results envelope.
func (c *Client) SearchProducts(query string) ([]models.RawProduct, error) {
	key := c.cache.ListingKey(query)
	if cached := c.cachedProducts(key); cached != nil {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/api/search?q=%s", c.baseURL, url.QueryEscape(query))

	var payload struct {
		Results []models.RawProduct `json:"results"`
	}
	if err := c.getJSON(endpoint, &payload); err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}

	c.storeProducts(key, payload.Results)
	return payload.Results, nil
}

// Suggest fetches autocomplete suggestions for a partial query.
func (c *Client) Suggest(query string) ([]string, error) {
	key := c.cache.SuggestKey(query)
	if c.cache.IsAvailable() {
		if cached, err := c.cache.GetSuggestions(key); err == nil && cached != nil {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/suggest?q=%s", c.baseURL, url.QueryEscape(query))

	var suggestions []string
	if err := c.getJSON(endpoint, &suggestions); err != nil {
		return nil, fmt.Errorf("fetching suggestions: %w", err)
	}
	if suggestions == nil {
		// A non-nil empty slice caches as [] instead of null, so empty
		// results hit the cache too.
		suggestions = []string{}
	}

	if c.cache.IsAvailable() {
		if err := c.cache.SetSuggestions(key, suggestions); err != nil {
			log.Printf("Failed to cache suggestions: %v", err)
		}
	}
	return suggestions, nil
}

// GetProduct fetches one product's canonical fields plus its raw price
// history log.
func (c *Client) GetProduct(asin string) (*models.ProductDetail, error) {
	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(asin))

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching product %s: %w", asin, err)
	}

	var raw models.RawProduct
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing product %s: %w", asin, err)
	}

	var payload struct {
		PriceHistory []models.PriceHistoryEntry `json:"price_history"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing price history for %s: %w", asin, err)
	}

	return &models.ProductDetail{
		Product:      catalog.Normalize(raw),
		PriceHistory: payload.PriceHistory,
	}, nil
}

// Bestsellers fetches the curated bestseller listing.
func (c *Client) Bestsellers() ([]models.RawProduct, error) {
	return c.cachedListing("listing:bestsellers", c.baseURL+"/api/products/bestsellers")
}

func (c *Client) cachedListing(key, endpoint string) ([]models.RawProduct, error) {
	if cached := c.cachedProducts(key); cached != nil {
		return cached, nil
	}

	var products []models.RawProduct
	if err := c.getJSON(endpoint, &products); err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}

	c.storeProducts(key, products)
	return products, nil
}

func (c *Client) cachedProducts(key string) []models.RawProduct {
	if !c.cache.IsAvailable() {
		return nil
	}
	cached, err := c.cache.GetProducts(key)
	if err != nil || cached == nil {
		return nil
	}
	log.Printf("Cache HIT for key: %s", key)
	return cached
}

func (c *Client) storeProducts(key string, products []models.RawProduct) {
	if !c.cache.IsAvailable() {
		return
	}
	if err := c.cache.SetProducts(key, products); err != nil {
		log.Printf("Failed to cache products for key %s: %v", key, err)
	}
}

func (c *Client) getJSON(endpoint string, target any) error {
	body, err := c.get(endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) get(endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shopmetrics-catalog/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
