package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	redisclient "github.com/martincervantes/procurehub-backend/pkg/redis"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, payload any) error
	SnapshotKey(kind string) string
}

// Loader produces the full projection for one record kind straight from the
// store. Registered once per kind at wiring time.
type Loader func(ctx context.Context) (any, error)

// ChangeMessage is the payload published on the changes channel after a
// successful mutation.
type ChangeMessage struct {
	Kind enums.RecordKind `json:"kind"`
}

// Service is the read-through projection cache over list views. It is never
// a source of truth: a miss or a stale entry is repaired by re-loading from
// the record store.
type Service struct {
	store   cacheStore
	logg    *logger.Logger
	ttl     time.Duration
	mu      sync.RWMutex
	loaders map[enums.RecordKind]Loader
}

// NewService constructs the snapshot cache. A zero ttl keeps snapshots until
// they are invalidated.
func NewService(store cacheStore, logg *logger.Logger, ttl time.Duration) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		store:   store,
		logg:    logg,
		ttl:     ttl,
		loaders: make(map[enums.RecordKind]Loader),
	}, nil
}

// RegisterLoader binds the projection loader for one record kind.
func (s *Service) RegisterLoader(kind enums.RecordKind, loader Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[kind] = loader
}

func (s *Service) loader(kind enums.RecordKind) (Loader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loader, ok := s.loaders[kind]
	return loader, ok
}

// Get returns the cached projection for a kind, loading and filling the
// cache on a miss.
func (s *Service) Get(ctx context.Context, kind enums.RecordKind) (json.RawMessage, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid record kind")
	}

	cached, err := s.store.Get(ctx, s.store.SnapshotKey(kind.String()))
	if err == nil && cached != "" {
		return json.RawMessage(cached), nil
	}
	if err != nil && !errors.Is(err, redislib.Nil) {
		// Cache trouble is not fatal; fall through to the store.
		s.logg.Warn(s.logg.WithField(ctx, "kind", kind.String()), "snapshot cache read failed")
	}

	return s.Warm(ctx, kind)
}

// Warm re-loads one kind from the record store and fills the cache.
func (s *Service) Warm(ctx context.Context, kind enums.RecordKind) (json.RawMessage, error) {
	loader, ok := s.loader(kind)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "no snapshot loader registered").
			WithDetails(map[string]any{"kind": kind.String()})
	}

	projection, err := loader(ctx)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshot projection")
	}
	payload, err := json.Marshal(projection)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot")
	}

	if err := s.store.Set(ctx, s.store.SnapshotKey(kind.String()), string(payload), s.ttl); err != nil {
		// Serving the fresh projection still works without the cache fill.
		s.logg.Warn(s.logg.WithField(ctx, "kind", kind.String()), "snapshot cache fill failed")
	}
	return payload, nil
}

// WarmAll re-loads every kind with a registered loader, aggregating the
// independent failures.
func (s *Service) WarmAll(ctx context.Context) error {
	s.mu.RLock()
	kinds := make([]enums.RecordKind, 0, len(s.loaders))
	for kind := range s.loaders {
		kinds = append(kinds, kind)
	}
	s.mu.RUnlock()

	var errs error
	for _, kind := range kinds {
		if _, err := s.Warm(ctx, kind); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("warm %s: %w", kind, err))
		}
	}
	return errs
}

// Invalidate drops the cached kind and announces the change on the feed.
// Both steps are best-effort: the cache repairs itself on the next read and
// subscribers re-warm on their own schedule.
func (s *Service) Invalidate(ctx context.Context, kind enums.RecordKind) {
	if !kind.IsValid() {
		return
	}
	if err := s.store.Del(ctx, s.store.SnapshotKey(kind.String())); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "kind", kind.String()), "snapshot invalidation failed")
	}

	payload, err := json.Marshal(ChangeMessage{Kind: kind})
	if err != nil {
		return
	}
	if err := s.store.Publish(ctx, redisclient.ChangesChannel, string(payload)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "kind", kind.String()), "change publish failed")
	}
}
