package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"shopmetrics-catalog/internal/catalog"
	"shopmetrics-catalog/internal/config"
	"shopmetrics-catalog/internal/forecast"
	"shopmetrics-catalog/internal/history"
	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/internal/session"
	"shopmetrics-catalog/internal/upstream"
	"shopmetrics-catalog/pkg/cache"
)

var (
	rateLimiters = make(map[string]*rate.Limiter)
	rateMutex    = &sync.RWMutex{}
)

// sessionStore hands out one browse session per caller. Sessions are
// keyed by the X-Session-ID header; callers without one share a default
// session.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Browse
	provider session.Provider
}

func newSessionStore(provider session.Provider) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session.Browse),
		provider: provider,
	}
}

func (s *sessionStore) get(id string) *session.Browse {
	s.mu.Lock()
	browse, ok := s.sessions[id]
	if !ok {
		browse = session.New(s.provider, 0)
		s.sessions[id] = browse
		s.mu.Unlock()
		if err := browse.Load(); err != nil {
			log.Printf("Initial catalog load failed for session %s: %v", id, err)
		}
		return browse
	}
	s.mu.Unlock()
	return browse
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	redisCache := cache.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.RedisDB, cfg.Cache.TTLSeconds)
	client := upstream.NewClient(cfg.Upstream, redisCache)
	store := newSessionStore(client)

	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Add request ID middleware
	r.Use(func(c *gin.Context) {
		requestID := fmt.Sprintf("%d", time.Now().UnixNano())
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		log.Printf("[%s] %s %s - %v - %d",
			requestID, c.Request.Method, c.Request.URL.Path,
			time.Since(start), c.Writer.Status())
	})

	r.Use(rateLimitMiddleware())

	r.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":  "healthy",
			"service": "shopmetrics-catalog",
			"version": "1.0.0",
		}

		if redisCache.IsAvailable() {
			health["cache"] = "redis connected"
		} else {
			health["cache"] = "redis unavailable"
		}

		c.JSON(http.StatusOK, health)
	})

	// Current paged view. A shared link's q parameter restores the search
	// before the view is computed.
	r.GET("/api/catalog/view", func(c *gin.Context) {
		sess := store.get(sessionID(c))

		if c.Query("q") != "" || c.Request.URL.Query().Has("q") {
			if err := sess.ApplyQuery(c.Request.URL.Query()); err != nil {
				log.Printf("Shared search restore failed: %v", err)
			}
		}

		respondView(c, sess)
	})

	// Filter mutations. Every change recomputes the view synchronously
	// from the full state, so the response never mixes old and new.
	r.POST("/api/catalog/filters", func(c *gin.Context) {
		var body struct {
			Page           *int     `json:"page"`
			Sort           *string  `json:"sort"`
			MinPrice       *float64 `json:"min_price"`
			MaxPrice       *float64 `json:"max_price"`
			ToggleCategory *string  `json:"toggle_category"`
			Clear          bool     `json:"clear"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_body",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
			return
		}

		sess := store.get(sessionID(c))

		if body.Clear {
			sess.ClearFilters()
		}
		if body.ToggleCategory != nil {
			sess.ToggleCategory(*body.ToggleCategory)
		}
		if body.MinPrice != nil || body.MaxPrice != nil {
			filters := sess.Filters()
			min, max := filters.PriceRange.Min, filters.PriceRange.Max
			if body.MinPrice != nil {
				min = *body.MinPrice
			}
			if body.MaxPrice != nil {
				max = *body.MaxPrice
			}
			sess.SetPriceRange(min, max)
		}
		if body.Sort != nil {
			sess.SetSort(*body.Sort)
		}
		if body.Page != nil {
			sess.SetPage(*body.Page)
		}

		respondView(c, sess)
	})

	// Explicit search commit. Fetch failures surface as an error field on
	// an empty but valid view, never as a dead session.
	r.POST("/api/catalog/search", func(c *gin.Context) {
		var body struct {
			Query      string `json:"q"`
			Suggestion bool   `json:"suggestion"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_body",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
			return
		}

		sess := store.get(sessionID(c))

		var commitErr error
		if body.Suggestion {
			commitErr = sess.ClickSuggestion(body.Query)
		} else {
			commitErr = sess.CommitSearch(body.Query)
		}
		if commitErr != nil {
			log.Printf("Search commit failed: %v", commitErr)
		}

		respondView(c, sess)
	})

	// Debounced autocomplete. The handler waits out the quiet period; a
	// request superseded by a newer keystroke returns 204 instead of
	// stale suggestions.
	r.GET("/api/catalog/suggest", func(c *gin.Context) {
		sess := store.get(sessionID(c))

		result := sess.TypeAndWait(c.Query("q"))
		if result.Stale {
			c.Status(http.StatusNoContent)
			return
		}

		c.JSON(http.StatusOK, result.State)
	})

	r.GET("/api/catalog/categories", func(c *gin.Context) {
		sess := store.get(sessionID(c))
		c.JSON(http.StatusOK, gin.H{
			"categories": sess.Categories(),
		})
	})

	// Single product with its reconstructed price series and statistics.
	r.GET("/products/:asin", func(c *gin.Context) {
		asin := c.Param("asin")

		detail, err := client.GetProduct(asin)
		if err != nil {
			log.Printf("Product fetch failed for %s: %v", asin, err)
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "product_fetch_failed",
				Code:    http.StatusBadGateway,
				Message: "Failed to load product details",
				Details: err.Error(),
			})
			return
		}

		series := history.Reconstruct(detail.PriceHistory)
		c.JSON(http.StatusOK, gin.H{
			"product": detail.Product,
			"history": series,
		})
	})

	r.GET("/products/:asin/forecast", func(c *gin.Context) {
		asin := c.Param("asin")

		days := 2
		if d := c.Query("days"); d != "" {
			if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
				days = parsed
			}
		}

		detail, err := client.GetProduct(asin)
		if err != nil {
			log.Printf("Product fetch failed for %s: %v", asin, err)
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "product_fetch_failed",
				Code:    http.StatusBadGateway,
				Message: "Failed to load product details",
				Details: err.Error(),
			})
			return
		}

		series := history.Reconstruct(detail.PriceHistory)
		c.JSON(http.StatusOK, gin.H{
			"asin":       detail.ASIN,
			"days":       days,
			"prediction": forecast.Holt(series.ValidPrices(), days),
		})
	})

	r.GET("/api/products/trending", func(c *gin.Context) {
		tracked, err := trackedProducts(client, rankingLimit(c))
		if err != nil {
			respondRankingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"products": history.RankTrending(tracked, rankingLimit(c)),
		})
	})

	r.GET("/api/products/deals", func(c *gin.Context) {
		tracked, err := trackedProducts(client, rankingLimit(c))
		if err != nil {
			respondRankingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"products": history.RankDeals(tracked, rankingLimit(c)),
		})
	})

	r.GET("/api/products/bestsellers", func(c *gin.Context) {
		raws, err := client.Bestsellers()
		if err != nil {
			respondRankingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"products": catalog.NormalizeAll(raws),
		})
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		if !redisCache.IsAvailable() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "cache not available",
			})
			return
		}
		c.JSON(http.StatusOK, redisCache.GetStats())
	})

	r.DELETE("/cache/flush", func(c *gin.Context) {
		if !redisCache.IsAvailable() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "cache not available",
			})
			return
		}

		if err := redisCache.FlushCache(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "failed to flush cache",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "cache flushed successfully",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	r.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "ShopMetrics Catalog API",
			"version":     "1.0.0",
			"description": "Catalog browsing and price-history API for the ShopMetrics price tracker",
			"features":    []string{"Filtering", "Sorting", "Pagination", "Debounced autocomplete", "Price history", "Price forecast", "Redis caching"},
			"endpoints": map[string]string{
				"GET /api/catalog/view":      "Current paged catalog view",
				"POST /api/catalog/filters":  "Update filters, sort, or page",
				"POST /api/catalog/search":   "Commit a search",
				"GET /api/catalog/suggest":   "Debounced autocomplete suggestions",
				"GET /products/:asin":        "Product details with price history",
				"GET /api/products/trending": "Products with the most price moves",
				"GET /api/products/deals":    "Products with recent price drops",
				"GET /health":                "Health check",
			},
		})
	})

	log.Printf("Starting catalog server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Session-ID")); id != "" {
		return id
	}
	return "default"
}

func respondView(c *gin.Context, sess *session.Browse) {
	view := sess.View()
	payload := gin.H{
		"view":        view,
		"filters":     sess.Filters(),
		"share_query": sess.Query().Encode(),
	}
	if errMsg := sess.Error(); errMsg != "" {
		payload["error"] = errMsg
	}
	c.JSON(http.StatusOK, payload)
}

func respondRankingError(c *gin.Context, err error) {
	log.Printf("Listing fetch failed: %v", err)
	c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "listing_fetch_failed",
		Code:    http.StatusBadGateway,
		Message: "Failed to load products",
		Details: err.Error(),
	})
}

func rankingLimit(c *gin.Context) int {
	limit := 12
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// trackedProducts pulls histories for the head of the catalog so the
// ranking endpoints have series to work with. Fetches run concurrently;
// products whose history cannot be loaded are skipped rather than failing
// the whole listing.
func trackedProducts(client *upstream.Client, limit int) ([]history.TrackedProduct, error) {
	raws, err := client.ListProducts()
	if err != nil {
		return nil, err
	}

	products := catalog.NormalizeAll(raws)
	if sample := limit * 4; len(products) > sample {
		products = products[:sample]
	}

	tracked := make([]history.TrackedProduct, 0, len(products))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, product := range products {
		if product.ASIN == "" {
			continue
		}
		wg.Add(1)
		go func(p models.Product) {
			defer wg.Done()

			detail, err := client.GetProduct(p.ASIN)
			if err != nil {
				log.Printf("History fetch failed for %s: %v", p.ASIN, err)
				return
			}

			mu.Lock()
			tracked = append(tracked, history.TrackedProduct{
				Product: detail.Product,
				Series:  history.Reconstruct(detail.PriceHistory),
			})
			mu.Unlock()
		}(product)
	}

	wg.Wait()
	return tracked, nil
}

func getRateLimiter(ip string) *rate.Limiter {
	rateMutex.RLock()
	limiter, exists := rateLimiters[ip]
	rateMutex.RUnlock()

	if !exists {
		rateMutex.Lock()
		limiter = rate.NewLimiter(rate.Limit(10), 20) // 10 req/sec, burst 20
		rateLimiters[ip] = limiter
		rateMutex.Unlock()
	}

	return limiter
}

func rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := getRateLimiter(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests from your IP",
				"retry_after": "1 second",
				"ip":          ip,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
