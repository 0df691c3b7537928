package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*Resource, error)
	listFunc    func(ctx context.Context) ([]Resource, error)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepository) List(ctx context.Context) ([]Resource, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []Resource{}, nil
}

func TestLookup(t *testing.T) {
	resourceID := uuid.New()
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*Resource, error) {
			return &Resource{
				ID:        id,
				Name:      "Dr. Sarah Patel",
				Specialty: "Dermatologist",
				Fee:       30.0,
				Available: true,
			}, nil
		},
	}
	service := NewService(repo, nil, time.Hour)

	pricing, err := service.Lookup(context.Background(), resourceID)
	require.NoError(t, err)
	assert.Equal(t, resourceID, pricing.ResourceID)
	assert.Equal(t, "Dr. Sarah Patel", pricing.Name)
	assert.Equal(t, 30.0, pricing.Fee)
	assert.True(t, pricing.Available)
}

func TestLookup_UnknownResource(t *testing.T) {
	service := NewService(&mockRepository{}, nil, time.Hour)

	_, err := service.Lookup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestListResources(t *testing.T) {
	repo := &mockRepository{
		listFunc: func(ctx context.Context) ([]Resource, error) {
			return []Resource{
				{Name: "Dr. Andrew Williams"},
				{Name: "Dr. Emily Larson"},
			}, nil
		},
	}
	service := NewService(repo, nil, time.Hour)

	resources, err := service.ListResources(context.Background())
	require.NoError(t, err)
	assert.Len(t, resources, 2)
}
