package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
)

// NewFailoverEmbeddingService creates a new failover service over the given
// providers. All providers must share a dimension so their vectors land in
// the same index.
func NewFailoverEmbeddingService(providers []EmbeddingProvider, strategy RetryStrategy) (*FailoverEmbeddingService, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one embedding provider is required")
	}
	if strategy == nil {
		strategy = &SimpleRetryStrategy{MaxAttempts: 3, BaseDelayMs: 100}
	}
	if len(providers) > 1 {
		dim := providers[0].Dimension()
		for i := 1; i < len(providers); i++ {
			if providers[i].Dimension() != dim {
				return nil, fmt.Errorf("all embedding providers must have the same dimension (provider %s has %d, expected %d)",
					providers[i].Name(), providers[i].Dimension(), dim)
			}
		}
	}

	return &FailoverEmbeddingService{
		Providers:      providers,
		ActiveProvider: 0,
		RetryStrategy:  strategy,
	}, nil
}

// Dimension returns the dimension of the currently active provider.
func (s *FailoverEmbeddingService) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Providers) == 0 {
		log.Warn("FailoverEmbeddingService has no providers, returning dimension 0")
		return 0
	}
	return s.Providers[s.ActiveProvider].Dimension()
}

// GenerateEmbedding tries providers with retries until one succeeds or all fail.
func (s *FailoverEmbeddingService) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	s.mu.RLock()
	initialProviderIndex := s.ActiveProvider
	numProviders := len(s.Providers)
	if numProviders == 0 {
		s.mu.RUnlock()
		return pgvector.Vector{}, fmt.Errorf("no embedding providers configured")
	}
	s.mu.RUnlock()

	var lastErr error
	attempt := 0

	for {
		s.mu.RLock()
		provider := s.Providers[s.ActiveProvider]
		s.mu.RUnlock()

		vec, err := provider.GenerateEmbedding(ctx, text)

		if ctx.Err() != nil {
			return pgvector.Vector{}, fmt.Errorf("context cancelled during embedding generation: %w", ctx.Err())
		}
		if err == nil {
			return vec, nil
		}

		lastErr = fmt.Errorf("provider %s failed: %w", provider.Name(), err)
		log.Warnf("Embedding provider %s failed (attempt %d): %v", provider.Name(), attempt+1, err)

		backoffMs := s.RetryStrategy.NextBackoff(attempt)
		if backoffMs < 0 {
			// Exhausted retries for this provider, switch to the next one.
			s.mu.Lock()
			nextProviderIndex := (s.ActiveProvider + 1) % numProviders
			if nextProviderIndex == initialProviderIndex {
				s.mu.Unlock()
				return pgvector.Vector{}, fmt.Errorf("all embedding providers failed: last error: %w", lastErr)
			}
			s.ActiveProvider = nextProviderIndex
			log.Infof("Switching active embedding provider to %s", s.Providers[nextProviderIndex].Name())
			s.mu.Unlock()

			attempt = 0
			continue
		}

		select {
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			attempt++
		case <-ctx.Done():
			return pgvector.Vector{}, fmt.Errorf("context cancelled while waiting to retry: %w", ctx.Err())
		}
	}
}

// GenerateEmbeddings handles batch generation with the same failover behavior,
// delegating to the active provider's batch method.
func (s *FailoverEmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	s.mu.RLock()
	initialProviderIndex := s.ActiveProvider
	numProviders := len(s.Providers)
	if numProviders == 0 {
		s.mu.RUnlock()
		return nil, fmt.Errorf("no embedding providers configured")
	}
	s.mu.RUnlock()

	var lastErr error
	attempt := 0

	for {
		s.mu.RLock()
		provider := s.Providers[s.ActiveProvider]
		s.mu.RUnlock()

		vecs, err := provider.GenerateEmbeddings(ctx, texts)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during batch embedding generation: %w", ctx.Err())
		}
		if err == nil {
			if len(vecs) == len(texts) {
				return vecs, nil
			}
			// Mismatched count indicates a provider implementation issue;
			// treat it like a failure.
			lastErr = fmt.Errorf("provider %s returned mismatched vector count (%d != %d)", provider.Name(), len(vecs), len(texts))
			log.Warnf("%v", lastErr)
		} else {
			lastErr = fmt.Errorf("provider %s failed batch generation: %w", provider.Name(), err)
			log.Warnf("Embedding provider %s failed batch (attempt %d): %v", provider.Name(), attempt+1, err)
		}

		backoffMs := s.RetryStrategy.NextBackoff(attempt)
		if backoffMs < 0 {
			s.mu.Lock()
			nextProviderIndex := (s.ActiveProvider + 1) % numProviders
			if nextProviderIndex == initialProviderIndex {
				s.mu.Unlock()
				return nil, fmt.Errorf("all embedding providers failed batch generation: last error: %w", lastErr)
			}
			s.ActiveProvider = nextProviderIndex
			log.Infof("Switching active embedding provider to %s", s.Providers[nextProviderIndex].Name())
			s.mu.Unlock()

			attempt = 0
			continue
		}

		select {
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			attempt++
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while waiting to retry batch: %w", ctx.Err())
		}
	}
}
