package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// scriptedEmbedder returns queued responses, one per EmbedBatch call.
// Once the queue is drained it falls back to the embedded stub.
type scriptedEmbedder struct {
	*stubEmbedder
	responses []func(texts []string) ([][]float32, error)
	next      int
}

func newScriptedEmbedder(responses ...func(texts []string) ([][]float32, error)) *scriptedEmbedder {
	return &scriptedEmbedder{stubEmbedder: newStubEmbedder(4), responses: responses}
}

func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.next < len(s.responses) {
		s.next++
		return s.responses[s.next-1](texts)
	}
	return s.stubEmbedder.EmbedBatch(ctx, texts)
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestEmbeddingClient_EmbedFixesDimension(t *testing.T) {
	client := NewEmbeddingClient(newStubEmbedder(4), EmbeddingClientConfig{Provider: "stub"})
	assert.Equal(t, 0, client.Dimension())

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, 4, client.Dimension())

	client.Reset()
	assert.Equal(t, 0, client.Dimension())
}

func TestEmbeddingClient_EmptyInput(t *testing.T) {
	stub := newStubEmbedder(4)
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub"})

	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, 0, stub.callCount())
}

func TestEmbeddingClient_DimensionDrift(t *testing.T) {
	stub := newStubEmbedder(4)
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub"})

	_, err := client.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	stub.dims = 5
	_, err = client.EmbedQuery(context.Background(), "b")
	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 5, dimErr.Got)
}

func TestEmbeddingClient_MixedDimensionsInOneBatch(t *testing.T) {
	stub := newScriptedEmbedder(func(_ []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3, 4}, {1, 2, 3}}, nil
	})
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub"})

	_, err := client.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, client.Dimension(), "failed batch does not fix the dimension")
}

func TestEmbeddingClient_PartialBatchRejected(t *testing.T) {
	stub := newScriptedEmbedder(func(_ []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3, 4}}, nil
	})
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub"})

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	assert.Nil(t, vectors)
	var provErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "1 embeddings for 3 inputs")
}

func TestEmbeddingClient_EmptyVectorRejected(t *testing.T) {
	stub := newScriptedEmbedder(func(_ []string) ([][]float32, error) {
		return [][]float32{{}}, nil
	})
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub"})

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
}

func TestEmbeddingClient_UnconfiguredMakesNoCall(t *testing.T) {
	cfgErr := &domain.ConfigurationError{Provider: "openai", Reason: "set OPENAI_API_KEY"}
	client := NewUnconfiguredEmbeddingClient("openai", cfgErr)

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, cfgErr, client.Configured())
	assert.Equal(t, "", client.ModelName())
	assert.ErrorIs(t, client.Ping(context.Background()), domain.ErrConfiguration)
}

func TestEmbeddingClient_NilServiceIsUnconfigured(t *testing.T) {
	client := NewEmbeddingClient(nil, EmbeddingClientConfig{Provider: "none"})
	assert.ErrorIs(t, client.Configured(), domain.ErrConfiguration)
}

func TestEmbeddingClient_SplitsLargeBatches(t *testing.T) {
	stub := newStubEmbedder(4)
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub", BatchSize: 2})

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	require.Len(t, stub.batches, 3)
	assert.Equal(t, []string{"e"}, stub.batches[2])
	assert.Equal(t, hashVector("c", 4), vectors[2], "order preserved across sub-batches")
}

func TestEmbeddingClient_RetriesProviderErrors(t *testing.T) {
	fail := func(_ []string) ([][]float32, error) { return nil, errors.New("503 service unavailable") }
	stub := newScriptedEmbedder(fail, fail)

	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub", Retries: 2, Backoff: time.Millisecond})
	var delays []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	vectors, err := client.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestEmbeddingClient_RetriesExhausted(t *testing.T) {
	stub := newStubEmbedder(4)
	stub.err = errors.New("connection refused")
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub", Retries: 2})
	client.sleep = noSleep

	_, err := client.Embed(context.Background(), []string{"a"})
	var provErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "stub", provErr.Provider)
	assert.Contains(t, provErr.Message, "connection refused")
	assert.Equal(t, 3, stub.callCount())
}

func TestEmbeddingClient_ConfigurationErrorNotRetried(t *testing.T) {
	stub := newStubEmbedder(4)
	stub.err = &domain.ConfigurationError{Provider: "openai", Reason: "invalid API key"}
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "openai", Retries: 3})
	client.sleep = noSleep

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 1, stub.callCount())
}

func TestEmbeddingClient_CancelledDuringBackoff(t *testing.T) {
	stub := newStubEmbedder(4)
	stub.err = errors.New("timeout")
	client := NewEmbeddingClient(stub, EmbeddingClientConfig{Provider: "stub", Retries: 3, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stub.callCount())
}

func TestEmbeddingClient_SetDimension(t *testing.T) {
	client := NewEmbeddingClient(newStubEmbedder(4), EmbeddingClientConfig{Provider: "stub"})
	client.SetDimension(8)

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
