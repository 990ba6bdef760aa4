package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/resolver"
	"golang.org/x/exp/slog"
)

const maxRequestBody = 1 << 20

type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Response, error)
}

type CheckAPI struct {
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCheckAPI(res Resolver, timeout time.Duration, logger *slog.Logger) *CheckAPI {
	return &CheckAPI{
		resolver: res,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *CheckAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && sub == "":
		c.Check(w, r)
	case sub == "":
		Error(w, http.StatusMethodNotAllowed, "method not allowed", fmt.Errorf("use POST, not %s", r.Method))
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the check api", r.Method, sub))
	}
}

func (c *CheckAPI) Check(w http.ResponseWriter, r *http.Request) {
	var req resolver.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.fail(w, r, http.StatusBadRequest, "could not parse request body", fmt.Errorf("%w: %w", resolver.ErrInvalidRequest, err))
		return
	}

	ctx := r.Context()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.resolver.Resolve(ctx, req)
	if err != nil {
		status, message := errorStatus(err)
		c.fail(w, r, status, message, err)
		return
	}

	if err := JSON(w, http.StatusOK, resp); err != nil {
		c.fail(w, r, http.StatusInternalServerError, "could not marshal response", err)
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, resolver.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, resolver.ErrConfig):
		return http.StatusInternalServerError, "service is not configured"
	case errors.Is(err, resolver.ErrDiscoveryExhausted):
		return http.StatusNotFound, "no videos found for channel"
	case errors.Is(err, resolver.ErrBatchLookup):
		return http.StatusBadGateway, "video lookup failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}

	return http.StatusInternalServerError, "could not resolve videos"
}

// fail logs a failed check at a level matching status and writes the error body.
func (c *CheckAPI) fail(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	c.logger.Log(r.Context(), level, message, slog.String("path", r.URL.Path), slog.Int("status", status), slog.String("err", err.Error()))
	Error(w, status, message, err)
}
