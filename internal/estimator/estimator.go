package estimator

import (
	"context"
	"errors"

	platformerrors "github.com/jmgilman/go/errors"
	"go.uber.org/zap"

	"github.com/eugenenazirov/box-estimator/internal/cache"
	"github.com/eugenenazirov/box-estimator/internal/logging"
	"github.com/eugenenazirov/box-estimator/internal/packer"
	"github.com/eugenenazirov/box-estimator/internal/packing"
	"github.com/eugenenazirov/box-estimator/internal/storage"
)

// Source tells where a decision came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
)

// Result is the outcome of an estimate.
type Result struct {
	Decision packing.Decision
	Source   Source
}

// Service turns a cart into a single-box decision. Only empty carts and an
// unreadable catalog are reported as errors; packing service failures are
// answered by the local fallback.
type Service struct {
	catalog storage.Catalog
	cache   cache.Cache
	packer  packer.Packer
	logger  *zap.Logger
}

// New constructs a Service with the provided dependencies.
func New(catalog storage.Catalog, c cache.Cache, p packer.Packer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog: catalog,
		cache:   c,
		packer:  p,
		logger:  logger,
	}
}

// Estimate decides which single catalog box holds every item. The items slice
// is not modified.
func (s *Service) Estimate(ctx context.Context, items []packing.Item) (Result, error) {
	if len(items) == 0 {
		return Result{}, platformerrors.Wrap(packing.ErrNoItems, platformerrors.CodeInvalidInput, "Input contains no items")
	}

	log := logging.For(ctx, s.logger)

	cart := make([]packing.Item, len(items))
	copy(cart, items)
	packing.NormalizeItems(cart)

	boxes, err := s.Boxes(ctx)
	if err != nil {
		return Result{}, err
	}

	// Boxes keep their dimensions for as long as they keep their id, so the
	// id list stands in for the whole catalog.
	key, err := packing.Key(packing.BoxIDs(boxes), cart)
	if err != nil {
		log.Warn("cache key unavailable, bypassing cache", zap.Error(err))
	} else if decision, ok := s.lookup(ctx, log, key); ok {
		return Result{Decision: decision, Source: SourceCache}, nil
	}

	normalized := make([]packing.Box, len(boxes))
	for i, b := range boxes {
		b.Normalize()
		normalized[i] = b
	}

	decision, err := s.packer.Pack(ctx, normalized, cart)
	if err != nil {
		fallback := packing.Fallback(boxes, cart)
		log.Warn("packing service failed, using local fallback",
			zap.String("reason", packer.Reason(err)),
			zap.Error(err),
			zap.Stringer("decision", fallback),
		)
		return Result{Decision: fallback, Source: SourceFallback}, nil
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, decision); err != nil {
			log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return Result{Decision: decision, Source: SourceExternal}, nil
}

// Boxes returns the catalog ordered by id.
func (s *Service) Boxes(ctx context.Context) ([]packing.Box, error) {
	boxes, err := s.catalog.ListBoxes(ctx)
	if err != nil {
		return nil, platformerrors.Wrap(errors.Join(packing.ErrCatalogUnavailable, err),
			platformerrors.CodeUnavailable, "Backend configuration not available")
	}
	packing.SortBoxesByID(boxes)
	return boxes, nil
}

func (s *Service) lookup(ctx context.Context, log *zap.Logger, key string) (packing.Decision, bool) {
	decision, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return packing.Decision{}, false
	}
	if ok {
		log.Debug("cache hit", zap.String("key", key), zap.Stringer("decision", decision))
	}
	return decision, ok
}
