// internal/auth/repository.go
package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	CreatePatient(ctx context.Context, patient *Patient) error
	GetPatientByEmail(ctx context.Context, email string) (*Patient, error)
	GetPatientByID(ctx context.Context, id string) (*Patient, error)
	UpdatePatientPassword(ctx context.Context, patientID string, hashedPassword string) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) CreatePatient(ctx context.Context, patient *Patient) error {
	if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
		return err
	}
	return nil
}

func (r *repository) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &patient, nil
}

func (r *repository) GetPatientByID(ctx context.Context, id string) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &patient, nil
}

func (r *repository) UpdatePatientPassword(ctx context.Context, patientID string, hashedPassword string) error {
	result := r.db.WithContext(ctx).Model(&Patient{}).
		Where("id = ?", patientID).
		Update("password", hashedPassword)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPatientNotFound
	}

	return nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Patient{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
