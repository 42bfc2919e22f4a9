package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/searchcore/internal/config"
	"github.com/AleutianAI/searchcore/internal/index"
)

// NewRouter builds the full Gin router: recovery, tracing, an in-flight
// request cap, CORS, the public query surface, and a token-gated admin
// group.
func NewRouter(reader *index.Reader, cfg config.Config) *gin.Engine {
	handlers := NewHandlers(reader)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("searchcore"))
	router.Use(inFlightLimitMiddleware(cfg.MaxInFlight))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigins))

	router.GET("/health", handlers.HandleHealth)
	router.GET("/search", handlers.HandleSearch)
	router.GET("/doc/:doc_id", handlers.HandleGetDoc)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := router.Group("/admin", adminTokenMiddleware(cfg.AdminToken))
	admin.GET("/stats", handlers.HandleStats)

	return router
}

// inFlightLimitMiddleware bounds the number of requests processed
// concurrently to maxInFlight, using a weighted semaphore so a slow
// backend can't accumulate unbounded goroutines under load. A
// non-positive maxInFlight disables the cap.
func inFlightLimitMiddleware(maxInFlight int) gin.HandlerFunc {
	if maxInFlight <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(int64(maxInFlight))
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "server at capacity",
				Code:  "UNAVAILABLE",
			})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// corsMiddleware applies a permissive-by-allowlist CORS policy. There is
// no CORS middleware among the project's dependencies, so this is a
// deliberately small, stdlib-only implementation.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-ADMIN-TOKEN, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// adminTokenMiddleware requires a matching X-ADMIN-TOKEN header on admin
// routes. An empty configured token disables the admin surface entirely.
func adminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: "NOT_FOUND"})
			return
		}
		if c.GetHeader("X-ADMIN-TOKEN") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
			return
		}
		c.Next()
	}
}

// Serve runs the router until ctx is cancelled or the listener fails.
func Serve(ctx context.Context, router *gin.Engine, addr string) error {
	srv := &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
