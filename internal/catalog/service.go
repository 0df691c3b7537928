package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicbook/internal/shared/constants"
	"clinicbook/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrResourceNotFound = errors.New("resource not found")

// Service is the pricing/catalog lookup collaborator: queried once at
// reservation-create time for the fee and availability flag.
type Service interface {
	Lookup(ctx context.Context, resourceID uuid.UUID) (*Pricing, error)
	GetResource(ctx context.Context, resourceID uuid.UUID) (*Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
}

type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
}

// NewService creates a catalog service. cacheService may be nil, in
// which case every lookup goes to the store.
func NewService(repo Repository, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

func (s *service) Lookup(ctx context.Context, resourceID uuid.UUID) (*Pricing, error) {
	resource, err := s.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	return &Pricing{
		ResourceID: resource.ID,
		Name:       resource.Name,
		Specialty:  resource.Specialty,
		Fee:        resource.Fee,
		Available:  resource.Available,
	}, nil
}

func (s *service) GetResource(ctx context.Context, resourceID uuid.UUID) (*Resource, error) {
	if s.cache == nil {
		return s.fetchResource(ctx, resourceID)
	}

	var resource Resource
	key := resourceCacheKey(resourceID)
	err := s.cache.GetOrSet(ctx, key, s.cacheTTL, func() (interface{}, error) {
		return s.fetchResource(ctx, resourceID)
	}, &resource)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	return &resource, nil
}

func (s *service) ListResources(ctx context.Context) ([]Resource, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}

	var resources []Resource
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_RESOURCE_LIST, constants.TTL_RESOURCE_LIST, func() (interface{}, error) {
		return s.repo.List(ctx)
	}, &resources)
	if err != nil {
		return nil, err
	}

	return resources, nil
}

func (s *service) fetchResource(ctx context.Context, resourceID uuid.UUID) (*Resource, error) {
	resource, err := s.repo.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to fetch resource: %w", err)
	}
	return resource, nil
}

func resourceCacheKey(resourceID uuid.UUID) string {
	return constants.BuildResourceDetailKey(resourceID.String())
}
