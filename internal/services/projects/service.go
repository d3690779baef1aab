package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"

	"gorm.io/gorm"
)

// Service manages projects and their paired sentinel keys.
type Service struct {
	db   *gorm.DB
	keys *keys.Service
}

func NewService(db *gorm.DB, keySvc *keys.Service) *Service {
	return &Service{db: db, keys: keySvc}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Project{})
}

// Create inserts a project and provisions its sentinel key in one
// transaction. If key provisioning fails the project does not persist.
func (s *Service) Create(ctx context.Context, ownerID uint, name string) (*models.ProjectResponse, error) {
	if name == "" {
		return nil, models.NewValidationError("project name is required", nil)
	}

	var resp *models.ProjectResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project := &models.Project{
			Name:    name,
			OwnerID: ownerID,
		}

		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		key, err := s.keys.Create(tx, project.ID)
		if err != nil {
			return err
		}

		resp = &models.ProjectResponse{
			ID:          project.ID,
			Name:        project.Name,
			OwnerID:     project.OwnerID,
			SentinelKey: key.KeyString,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ListByOwner returns the owner's projects with their key strings.
func (s *Service) ListByOwner(ctx context.Context, ownerID uint) ([]models.ProjectResponse, error) {
	var projects []models.Project

	err := s.db.WithContext(ctx).
		Preload("SentinelKey").
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	responses := make([]models.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp := models.ProjectResponse{
			ID:      p.ID,
			Name:    p.Name,
			OwnerID: p.OwnerID,
		}
		if p.SentinelKey != nil {
			resp.SentinelKey = p.SentinelKey.KeyString
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// Get returns a single project scoped to its owner.
func (s *Service) Get(ctx context.Context, projectID, ownerID uint) (*models.Project, error) {
	var project models.Project

	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", projectID, ownerID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("project not found")
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// Delete removes a project, its sentinel key and all usage events in
// one transaction. Ownership is checked first so another user's
// project reads as missing.
func (s *Service) Delete(ctx context.Context, projectID, ownerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.Where("id = ? AND owner_id = ?", projectID, ownerID).First(&project).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("project not found")
			}
			return fmt.Errorf("failed to get project: %w", err)
		}

		var keyIDs []uint
		if err := tx.Model(&models.SentinelKey{}).Where("project_id = ?", project.ID).Pluck("id", &keyIDs).Error; err != nil {
			return fmt.Errorf("failed to list sentinel keys: %w", err)
		}

		if len(keyIDs) > 0 {
			if err := tx.Where("sentinel_key_id IN ?", keyIDs).Delete(&models.UsageEvent{}).Error; err != nil {
				return fmt.Errorf("failed to delete usage events: %w", err)
			}
			if err := tx.Where("project_id = ?", project.ID).Delete(&models.SentinelKey{}).Error; err != nil {
				return fmt.Errorf("failed to delete sentinel keys: %w", err)
			}
		}

		if err := tx.Delete(&project).Error; err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}

		return nil
	})
}
