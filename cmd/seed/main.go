package main

import (
	"context"
	"fmt"
	"log"

	"clinicbook/internal/auth"
	"clinicbook/internal/catalog"
	"clinicbook/internal/shared/config"
	"clinicbook/internal/shared/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting ClinicBook Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"slot_claims",
		"reservations",
		"resources",
		"patients",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedPatients(); err != nil {
		return fmt.Errorf("failed to seed patients: %w", err)
	}

	if err := s.SeedResources(); err != nil {
		return fmt.Errorf("failed to seed resources: %w", err)
	}

	// Clear Redis so catalog lookups and idempotency keys start fresh
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

// SeedPatients creates test patient accounts
func (s *Seeder) SeedPatients() error {
	fmt.Println("  👤 Seeding patients...")

	// All seeded accounts share the password "qwerty"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	patientsData := []struct {
		firstName string
		lastName  string
		email     string
	}{
		{"Alice", "Morgan", "alice.morgan@example.com"},
		{"Ben", "Okafor", "ben.okafor@example.com"},
	}

	for _, data := range patientsData {
		patient := auth.Patient{
			ID:        uuid.New(),
			FirstName: data.firstName,
			LastName:  data.lastName,
			Email:     data.email,
			Password:  string(hashedPassword),
		}

		if err := s.db.PostgreSQL.Create(&patient).Error; err != nil {
			return fmt.Errorf("failed to create patient %s: %w", data.email, err)
		}

		fmt.Printf("    ✅ Created patient: %s\n", patient.Email)
	}

	return nil
}

// SeedResources creates a set of bookable practitioners
func (s *Seeder) SeedResources() error {
	fmt.Println("  🩺 Seeding resources...")

	resourcesData := []struct {
		name      string
		specialty string
		fee       float64
		available bool
	}{
		{"Dr. Richard James", "General physician", 50.0, true},
		{"Dr. Emily Larson", "Gynecologist", 60.0, true},
		{"Dr. Sarah Patel", "Dermatologist", 30.0, true},
		{"Dr. Christopher Lee", "Pediatrician", 40.0, true},
		{"Dr. Jennifer Garcia", "Neurologist", 50.0, true},
		{"Dr. Andrew Williams", "Gastroenterologist", 50.0, true},
		{"Dr. Timothy White", "General physician", 50.0, false},
		{"Dr. Ava Mitchell", "Dermatologist", 30.0, true},
	}

	for _, data := range resourcesData {
		resource := catalog.Resource{
			ID:        uuid.New(),
			Name:      data.name,
			Specialty: data.specialty,
			Fee:       data.fee,
			Available: data.available,
		}

		if err := s.db.PostgreSQL.Create(&resource).Error; err != nil {
			return fmt.Errorf("failed to create resource %s: %w", data.name, err)
		}

		fmt.Printf("    ✅ Created resource: %s (%s, $%.2f)\n", resource.Name, resource.Specialty, resource.Fee)
	}

	return nil
}
