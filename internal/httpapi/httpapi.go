// Package httpapi wires the query engine and index reader into a Gin
// HTTP server.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/searchcore/internal/errs"
	"github.com/AleutianAI/searchcore/internal/index"
	"github.com/AleutianAI/searchcore/internal/query"
)

// ErrorResponse is the JSON body returned for any non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Handlers exposes the read-only query surface over a sealed index.
type Handlers struct {
	reader *index.Reader
	engine *query.Engine
}

// NewHandlers wraps reader with a query engine and exposes both through
// the HTTP handlers.
func NewHandlers(reader *index.Reader) *Handlers {
	return &Handlers{reader: reader, engine: query.NewEngine(reader)}
}

// getOrCreateRequestID returns the inbound X-Request-Id header, or mints
// a fresh one, and ensures the response carries it either way.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-Id", id)
	return id
}

func writeError(c *gin.Context, requestID string, err error) {
	kind := errs.KindOf(err)
	c.JSON(errs.HTTPStatus(kind), ErrorResponse{
		Error:     err.Error(),
		Code:      kind.String(),
		RequestID: requestID,
	})
}

// HandleHealth handles GET /health: a liveness probe that never touches
// the index.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleSearch handles GET /search?q=...&k=....
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	ctx, span := otel.Tracer("searchcore.httpapi").Start(c.Request.Context(), "searchcore.httpapi.search",
		oteltrace.WithAttributes(attribute.String("request_id", requestID)))
	defer span.End()

	q := c.Query("q")
	if q == "" {
		err := errs.Newf(errs.QueryMalformed, "q parameter is required")
		span.SetStatus(codes.Error, err.Error())
		writeError(c, requestID, err)
		return
	}

	k := 10
	if kStr := c.Query("k"); kStr != "" {
		n, err := strconv.Atoi(kStr)
		if err != nil {
			wrapped := errs.Newf(errs.QueryMalformed, "k must be an integer: %v", err)
			span.SetStatus(codes.Error, wrapped.Error())
			writeError(c, requestID, wrapped)
			return
		}
		k = n
	}

	resp, err := h.engine.Search(ctx, q, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		writeError(c, requestID, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.Header("X-Request-Id", requestID)
	c.JSON(http.StatusOK, resp)
}

// HandleGetDoc handles GET /doc/:doc_id.
func (h *Handlers) HandleGetDoc(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	docIDStr := c.Param("doc_id")
	docID64, err := strconv.ParseUint(docIDStr, 10, 32)
	if err != nil {
		writeError(c, requestID, errs.Newf(errs.QueryMalformed, "doc_id must be a non-negative integer"))
		return
	}
	docID := uint32(docID64)

	meta, err := h.reader.DocMeta(docID)
	if err != nil {
		writeError(c, requestID, err)
		return
	}
	text, err := h.reader.Text(docID)
	if err != nil {
		writeError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"doc_id":    meta.DocID,
		"ext_id":    meta.ExtID,
		"title":     meta.Title,
		"url":       meta.URL,
		"timestamp": meta.Timestamp,
		"meta":      meta.Meta,
		"text":      text,
	})
}

// HandleStats handles GET /admin/stats, gated by an admin-token middleware.
func (h *Handlers) HandleStats(c *gin.Context) {
	stats := h.reader.Stats()
	c.JSON(http.StatusOK, gin.H{
		"num_docs":        h.reader.NumDocs(),
		"postings_hits":   stats.PostingsHits,
		"postings_misses": stats.PostingsMisses,
		"text_hits":       stats.TextHits,
		"text_misses":     stats.TextMisses,
	})
}
