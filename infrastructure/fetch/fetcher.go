// Package fetch retrieves graph documents and registry overrides from a URL
// or a local file path.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/utils"
)

// maxBodyBytes bounds a single fetched document
const maxBodyBytes = 32 << 20

// ErrNotFound is returned when the location does not resolve to a document
var ErrNotFound = pkgerrors.Sentinel(pkgerrors.ErrorTypeNotFound, "DOCUMENT_NOT_FOUND", "document not found")

// BreakerConfig holds the circuit breaker thresholds for remote fetches
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the thresholds used for remote locations
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// Fetcher loads documents over HTTP(S) behind a circuit breaker, or from the
// filesystem for anything that is not a URL.
type Fetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	root    string
	logger  *zap.Logger
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBreaker replaces the default breaker thresholds
func WithBreaker(cfg BreakerConfig) Option {
	return func(f *Fetcher) { f.breaker = newBreaker(cfg, f.logger) }
}

// NewFetcher creates a fetcher. timeout bounds each remote request.
func NewFetcher(timeout time.Duration, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	f := &Fetcher{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
	f.breaker = newBreaker(DefaultBreakerConfig("document-fetch"), logger)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newBreaker(cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// a missing document is an answer, not a failing remote
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
}

// Within returns a fetcher sharing this one's client and breaker whose file
// locations are names relative to root. Names leaving root are rejected.
func (f *Fetcher) Within(root string) *Fetcher {
	scoped := *f
	scoped.root = root
	return &scoped
}

// IsRemote reports whether location is fetched over HTTP
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch returns the document bytes at location
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, pkgerrors.NewValidationError("location is required")
	}
	if !IsRemote(location) {
		return f.readFile(location)
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.get(ctx, location)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewUnavailableError(location).WithCause(err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid location").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, pkgerrors.NewTimeoutError("fetch " + url).WithCause(err)
		}
		return nil, pkgerrors.NewNetworkError("fetch failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.Derive(ErrNotFound, "no document at %s", url)
	case resp.StatusCode >= 300:
		return nil, pkgerrors.NewExternalError(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, pkgerrors.NewNetworkError("read response body", err)
	}
	f.logger.Debug("Fetched document",
		zap.String("location", url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	resolved, err := utils.ResolveInRoot(f.root, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return nil, pkgerrors.Derive(ErrNotFound, "no document at %s", path)
	}
	if err != nil {
		return nil, pkgerrors.NewStorageError("read document", err)
	}
	return data, nil
}

// State reports the breaker state, for health output
func (f *Fetcher) State() string {
	return f.breaker.State().String()
}
