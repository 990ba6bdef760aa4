package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonasfroeller/tube-visibility-inspector/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
)

const RequestIDHeader = "X-Request-Id"

type Server struct {
	apis    map[string]http.Handler
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewServer(res Resolver, m *metrics.Metrics, gatherer prometheus.Gatherer, requestTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		apis: map[string]http.Handler{
			"check":   NewCheckAPI(res, requestTimeout, logger),
			"metrics": promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		},
		metrics: m,
		logger:  logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	originalPath := r.URL.Path
	requestID := uuid.New().String()
	rec := httptest.NewRecorder() // records the response to be able to mix writing headers and content

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, requestID)

	// route to api
	head, tail := ShiftPath(r.URL.Path)
	route := head
	if len(head) == 0 {
		Index(rec)
	} else if api, ok := s.apis[head]; ok {
		r.URL.Path = tail
		api.ServeHTTP(rec, r)
	} else {
		route = "unknown"
		Error(rec, http.StatusNotFound, "Not found", fmt.Errorf("%s is not a valid path", originalPath))
	}

	returnResponse(w, rec)
	if s.metrics != nil {
		s.metrics.RequestServed(route, rec.Code, time.Since(start))
	}
	s.logger.Info("request served",
		slog.String("path", originalPath),
		slog.String("method", r.Method),
		slog.Int("status", rec.Code),
		slog.String("requestId", requestID),
		slog.Duration("duration", time.Since(start)),
	)
}

func returnResponse(w http.ResponseWriter, rec *httptest.ResponseRecorder) {
	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	w.Write(rec.Body.Bytes())
}

// ShiftPath returns the first segment of the cleaned path p and the rooted
// remainder. "/check/x/" yields "check" and "/x".
func ShiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)[1:]
	head, rest, found := strings.Cut(p, "/")
	if !found {
		return head, "/"
	}
	return head, "/" + rest
}
