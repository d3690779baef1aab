package projects

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.Project{}, &models.SentinelKey{}, &models.UsageEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func setupService(t *testing.T) (*Service, *keys.Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	keySvc := keys.NewService(db)
	return NewService(db, keySvc), keySvc, db
}

func TestCreateProvisionsKeyAtomically(t *testing.T) {
	svc, keySvc, _ := setupService(t)

	resp, err := svc.Create(context.Background(), 7, "prod")
	if err != nil {
		t.Fatal(err)
	}

	if resp.Name != "prod" || resp.OwnerID != 7 {
		t.Errorf("Unexpected response %+v", resp)
	}
	if !strings.HasPrefix(resp.SentinelKey, models.KeyPrefix) {
		t.Errorf("Expected response to carry the generated key, got %q", resp.SentinelKey)
	}

	key, err := keySvc.GetByProjectID(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if key.KeyString != resp.SentinelKey {
		t.Error("Expected stored key to match the returned key")
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Create(context.Background(), 7, "")
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Type != models.ErrorTypeValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestListByOwnerReturnsKeys(t *testing.T) {
	svc, _, _ := setupService(t)

	first, err := svc.Create(context.Background(), 7, "prod")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), 7, "staging"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), 8, "other-tenant"); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListByOwner(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 projects for owner 7, got %d", len(list))
	}
	if list[0].SentinelKey != first.SentinelKey {
		t.Error("Expected listing to include key strings")
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, keySvc, db := setupService(t)

	resp, err := svc.Create(context.Background(), 7, "prod")
	if err != nil {
		t.Fatal(err)
	}
	key, err := keySvc.GetByProjectID(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.UsageEvent{SentinelKeyID: key.ID, Cost: 5}).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), resp.ID, 7); err != nil {
		t.Fatal(err)
	}

	var eventCount, keyCount int64
	db.Model(&models.UsageEvent{}).Count(&eventCount)
	db.Model(&models.SentinelKey{}).Count(&keyCount)
	if eventCount != 0 || keyCount != 0 {
		t.Errorf("Expected cascade to remove key and events, got %d keys %d events", keyCount, eventCount)
	}

	_, err = keySvc.VerifyActive(context.Background(), key.KeyString)
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Type != models.ErrorTypeAuthentication {
		t.Errorf("Expected deleted key to fail verification, got %v", err)
	}
}

func TestDeleteOtherOwnersProject(t *testing.T) {
	svc, _, db := setupService(t)

	resp, err := svc.Create(context.Background(), 7, "prod")
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Delete(context.Background(), resp.ID, 8)
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Type != models.ErrorTypeNotFound {
		t.Errorf("Expected not found for foreign project, got %v", err)
	}

	var count int64
	db.Model(&models.Project{}).Count(&count)
	if count != 1 {
		t.Error("Expected project to survive a foreign delete attempt")
	}
}
