package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/api-sentinel/sentinel-gateway/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.PricingEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	if err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatal(err)
	}
	var first int64
	db.Model(&models.PricingEntry{}).Count(&first)
	if first == 0 {
		t.Fatal("Expected seed to insert catalog entries")
	}

	if err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatal(err)
	}
	var second int64
	db.Model(&models.PricingEntry{}).Count(&second)
	if second != first {
		t.Errorf("Expected reseed to be a no-op, went from %d to %d rows", first, second)
	}
}

func TestListByAPI(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	if err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.ListByAPI(context.Background(), "openai")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected entries for openai")
	}
	for _, e := range entries {
		if e.APIName != "openai" {
			t.Errorf("Expected only openai entries, got %s", e.APIName)
		}
	}
}

func TestListByAPIUnknownProvider(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, err := svc.ListByAPI(context.Background(), "no-such-api")
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Type != models.ErrorTypeNotFound {
		t.Errorf("Expected not found error, got %v", err)
	}
}
