package query

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/store"
)

// NewHTTPHandler builds the gin engine for the query HTTP transport,
// grounded on the teacher sibling api-server's route-group/gin.H idiom.
func NewHTTPHandler(d *Dispatcher, tail *Broadcaster, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	{
		v1.POST("/search", postSearch(d))
		v1.POST("/traces", postTraces(d))
		v1.POST("/trace", postTrace(d))
		v1.GET("/trace/:trace_id", getTrace(d))
		v1.POST("/span", postSpan(d))
		v1.POST("/metrics", postMetrics(d))
		v1.POST("/metrics/list", postMetricsList(d))
		v1.GET("/status", getStatus(d))
		v1.GET("/tail", tailSSE(tail, logger))
	}
	return r
}

func postSearch(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.SearchRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpSearch, Search: &body}))
	}
}

func postTraces(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.TracesRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpTraces, Traces: &body}))
	}
}

func postTrace(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.TraceRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpTrace, Trace: &body}))
	}
}

func postSpan(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.SpanRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpSpan, Span: &body}))
	}
}

func postMetrics(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.MetricsRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpMetrics, Metrics: &body}))
	}
}

func postMetricsList(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.MetricsListRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondJSON(c, d.Dispatch(c.Request.Context(), Request{Op: OpMetricsList, MetricsList: &body}))
	}
}

func getTrace(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := Request{Op: OpTrace, Trace: &store.TraceRequest{
			TraceID: c.Param("trace_id"),
			Root:    c.Query("root"),
			Logs:    model.ParseLogsPolicy(c.Query("logs")),
		}}
		resp := d.Dispatch(c.Request.Context(), req)
		respondJSON(c, resp)
	}
}

func getStatus(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := d.Dispatch(c.Request.Context(), Request{Op: OpStatus})
		respondJSON(c, resp)
	}
}

func respondJSON(c *gin.Context, resp Response) {
	if resp.Error != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": resp.Error})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// tailSSE streams new log records as "data: <json>" frames, per a filter
// subset applied in the subscriber rather than pushed into the broadcaster.
func tailSSE(tail *Broadcaster, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		service := c.Query("service")
		var matchFn func(string) bool
		if pattern := c.Query("pattern"); pattern != "" {
			m, err := tailMatcher(pattern, c.Query("fixed") == "true", c.Query("ignore_case") == "true")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			matchFn = m
		}

		recCh, lagged, cancel := tail.Subscribe()
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		flusher.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-lagged:
				fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", `{"error":"tail buffer overflow, disconnecting"}`)
				flusher.Flush()
				return
			case rec, ok := <-recCh:
				if !ok {
					return
				}
				if service != "" && (rec.Service == nil || *rec.Service != service) {
					continue
				}
				if matchFn != nil && !(matchFn(rec.Body) || matchFn(rec.Attrs.FlatText())) {
					continue
				}
				body, err := json.Marshal(rec)
				if err != nil {
					logger.Warn("tail: marshal failed", zap.Error(err))
					continue
				}
				fmt.Fprintf(c.Writer, "data: %s\n\n", body)
				flusher.Flush()
			}
		}
	}
}

// tailMatcher mirrors the store's Search matcher semantics (regex unless
// fixed, optional case-insensitivity) for filtering /v1/tail in the
// subscriber rather than at publish time.
func tailMatcher(pattern string, fixed, ignoreCase bool) (func(string) bool, error) {
	if fixed {
		needle := pattern
		if ignoreCase {
			needle = strings.ToLower(needle)
		}
		return func(s string) bool {
			if ignoreCase {
				s = strings.ToLower(s)
			}
			return strings.Contains(s, needle)
		}, nil
	}
	expr := pattern
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
