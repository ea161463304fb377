package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"codearena.app/arbiter/internal/cache"
	"codearena.app/arbiter/internal/model"
)

// Service fronts the Synthesizer with a TTL cache and request coalescing.
// Concurrent research requests for the same cache key share one model call;
// a cached document is reused until its TTL lapses or a force refresh
// invalidates it.
type Service struct {
	synth *Synthesizer
	store cache.Store
	ttl   time.Duration
	group singleflight.Group
}

func NewService(synth *Synthesizer, store cache.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{synth: synth, store: store, ttl: ttl}
}

// Research returns the research document for a submission, from cache when
// fresh. forceRefresh drops the cached entry before researching, so a
// refresh always reaches the model.
func (s *Service) Research(ctx context.Context, sub model.Submission, analysis *model.RepositoryAnalysis, digest *model.RepositoryDigest, forceRefresh bool) (*model.ResearchDocument, error) {
	key := CacheKey(sub, digest)

	if forceRefresh {
		if err := s.store.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "cache invalidation failed", "cache_key", key, "error", err)
		}
	} else if doc, ok := s.lookup(ctx, key); ok {
		slog.InfoContext(ctx, "research cache hit", "cache_key", key)
		return doc, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		// Re-check under the flight: a coalesced caller may arrive after
		// the winner has already populated the cache.
		if !forceRefresh {
			if doc, ok := s.lookup(ctx, key); ok {
				return doc, nil
			}
		}

		doc, err := s.synth.Synthesize(ctx, sub, analysis, digest)
		if err != nil {
			return nil, err
		}
		doc.CacheKey = key

		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding research document: %w", err)
		}
		if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
			// A write failure costs a future cache hit, not this result.
			slog.WarnContext(ctx, "research cache write failed", "cache_key", key, "error", err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.InfoContext(ctx, "research request coalesced", "cache_key", key)
	}
	return v.(*model.ResearchDocument), nil
}

func (s *Service) lookup(ctx context.Context, key string) (*model.ResearchDocument, bool) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "research cache read failed", "cache_key", key, "error", err)
		return nil, false
	}

	var doc model.ResearchDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.WarnContext(ctx, "research cache entry corrupt", "cache_key", key, "error", err)
		return nil, false
	}
	return &doc, true
}

// CacheKey derives the cache key from the submission's identity and a hash
// over its evaluated content. Editing the submission or changing the digest
// changes the key, so stale research can never be served for new content.
func CacheKey(sub model.Submission, digest *model.RepositoryDigest) string {
	h := sha256.New()
	h.Write([]byte(sub.ProjectName))
	h.Write([]byte{0})
	h.Write([]byte(sub.Description))
	h.Write([]byte{0})
	h.Write([]byte(sub.TechStack))
	h.Write([]byte{0})
	h.Write([]byte(sub.RepositoryURL))
	h.Write([]byte{0})
	h.Write([]byte(digest.Content))
	return fmt.Sprintf("research:%d:%s", sub.ID, hex.EncodeToString(h.Sum(nil)))
}
