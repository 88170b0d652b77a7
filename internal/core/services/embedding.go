package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Embedding client defaults.
const (
	DefaultEmbeddingBatchSize = 64
	DefaultEmbeddingTimeout   = 30 * time.Second
	defaultRetryBackoff       = 500 * time.Millisecond
)

// EmbeddingClientConfig configures an EmbeddingClient.
type EmbeddingClientConfig struct {
	// Provider names the provider in errors and health output.
	Provider string

	// Timeout bounds each provider request. Zero uses DefaultEmbeddingTimeout.
	Timeout time.Duration

	// BatchSize splits large inputs into several requests.
	BatchSize int

	// Retries is the number of extra attempts per request.
	Retries int

	// Backoff is the delay before the first retry; it doubles each attempt.
	Backoff time.Duration
}

// EmbeddingClient validates provider output before anything reaches the store.
//
// Every call is all-or-nothing: either one vector per input text with the
// session dimension is returned, or an error and no vectors. The first
// successful call fixes the dimension for the session.
type EmbeddingClient struct {
	service   driven.EmbeddingService
	configErr error
	cfg       EmbeddingClientConfig

	mu        sync.Mutex
	dimension int
	sleep     func(context.Context, time.Duration) error
}

// NewEmbeddingClient wraps an embedding service.
func NewEmbeddingClient(service driven.EmbeddingService, cfg EmbeddingClientConfig) *EmbeddingClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEmbeddingTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbeddingBatchSize
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultRetryBackoff
	}
	return &EmbeddingClient{
		service: service,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// NewUnconfiguredEmbeddingClient returns a client whose every call fails
// with err without contacting any provider.
func NewUnconfiguredEmbeddingClient(provider string, err error) *EmbeddingClient {
	c := NewEmbeddingClient(nil, EmbeddingClientConfig{Provider: provider})
	c.configErr = err
	return c
}

// Configured returns the configuration error, or nil when a provider is usable.
func (c *EmbeddingClient) Configured() error {
	if c.configErr != nil {
		return c.configErr
	}
	if c.service == nil {
		return &domain.ConfigurationError{Provider: c.cfg.Provider, Reason: "no embedding provider configured"}
	}
	return nil
}

// Provider returns the provider name.
func (c *EmbeddingClient) Provider() string {
	return c.cfg.Provider
}

// ModelName returns the model name, or "" when unconfigured.
func (c *EmbeddingClient) ModelName() string {
	if c.service == nil {
		return ""
	}
	return c.service.ModelName()
}

// Dimension returns the session dimension, or 0 before the first success.
func (c *EmbeddingClient) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// SetDimension fixes the session dimension, for example to the dimension of a
// loaded index. Zero unfixes it.
func (c *EmbeddingClient) SetDimension(dim int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dimension = dim
}

// Reset unfixes the dimension so a new model can be used.
func (c *EmbeddingClient) Reset() {
	c.SetDimension(0)
}

// Ping checks the provider is reachable.
func (c *EmbeddingClient) Ping(ctx context.Context) error {
	if err := c.Configured(); err != nil {
		return err
	}
	if err := c.service.Ping(ctx); err != nil {
		return c.providerError(err)
	}
	return nil
}

// EmbedQuery embeds a single question.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed converts texts into vectors as one atomic batch.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	defer logger.Timed(fmt.Sprintf("embed %d texts", len(texts)))()

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		part, err := c.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, part...)
	}

	if err := c.checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *EmbeddingClient) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := c.cfg.Backoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying embedding batch of %d (attempt %d): %v", len(texts), attempt+1, lastErr)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, c.providerError(err)
			}
			backoff *= 2
		}

		vectors, err := c.embedOnce(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	vectors, err := c.service.EmbedBatch(reqCtx, texts)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, c.providerError(err)
	}
	if len(vectors) != len(texts) {
		return nil, &domain.EmbeddingProviderError{
			Provider: c.cfg.Provider,
			Message:  fmt.Sprintf("returned %d embeddings for %d inputs", len(vectors), len(texts)),
		}
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &domain.EmbeddingProviderError{
				Provider: c.cfg.Provider,
				Message:  fmt.Sprintf("empty embedding for input %d", i),
			}
		}
	}
	return vectors, nil
}

// checkDimensions verifies every vector against the session dimension,
// fixing it on the first successful call.
func (c *EmbeddingClient) checkDimensions(vectors [][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expected := c.dimension
	if expected == 0 {
		expected = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != expected {
			return &domain.DimensionMismatchError{Expected: expected, Got: len(v)}
		}
	}
	if c.dimension == 0 {
		logger.Debug("Embedding dimension fixed at %d", expected)
		c.dimension = expected
	}
	return nil
}

func (c *EmbeddingClient) providerError(err error) error {
	return &domain.EmbeddingProviderError{Provider: c.cfg.Provider, Message: err.Error(), Err: err}
}

// retryable reports whether a failed request may be sent again.
// Configuration problems and caller cancellation are final.
func retryable(err error) bool {
	if errors.Is(err, domain.ErrConfiguration) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, domain.ErrEmbeddingProvider)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
