package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"places_backend/pkg/apperr"
	"places_backend/pkg/metrics"
	"places_backend/pkg/models"
	"places_backend/pkg/publicurl"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one row of a user's favorites list.
type Entry struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Type         models.PlaceType   `json:"type"`
	City         string             `json:"city"`
	Address      string             `json:"address"`
	PrimaryImage *string            `json:"primaryImage"`
	Stats        *models.PlaceStats `json:"stats"`
	Tags         []models.PlaceTag  `json:"tags"`
	FavoritedAt  time.Time          `json:"favoritedAt"`
}

type Service struct {
	db      *gorm.DB
	baseURL string
	log     logrus.FieldLogger
}

func NewService(db *gorm.DB, publicBaseURL string, log logrus.FieldLogger) *Service {
	return &Service{db: db, baseURL: publicBaseURL, log: log}
}

// Toggle flips the favorite state of (userID, placeID) and returns the new
// state. Only active places can be favorited.
func (s *Service) Toggle(ctx context.Context, userID, placeID string) (bool, error) {
	if !models.ValidID(placeID) {
		return false, apperr.NotFound("Place not found")
	}
	if !models.ValidID(userID) {
		return false, apperr.Unauthorized("User not found.")
	}
	db := s.db.WithContext(ctx)

	res := db.Where("user_id = ? AND place_id = ?", userID, placeID).Delete(&models.Favorite{})
	if res.Error != nil {
		return false, fmt.Errorf("remove favorite: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.record(userID, placeID, false)
		return false, nil
	}

	var place models.Place
	err := db.Select("id").Where("id = ? AND is_active = ?", placeID, true).First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.NotFound("Place not found")
	}
	if err != nil {
		return false, fmt.Errorf("find place: %w", err)
	}

	favorite := &models.Favorite{UserID: userID, PlaceID: placeID}
	if err := db.Omit(clause.Associations).Create(favorite).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// A concurrent toggle inserted the same pair first.
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return false, apperr.Unauthorized("User not found.")
		default:
			return false, fmt.Errorf("create favorite: %w", err)
		}
	}
	s.record(userID, placeID, true)
	return true, nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	if !models.ValidID(userID) || !models.ValidID(placeID) {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return count > 0, nil
}

// List returns the user's favorites, most recently favorited first.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	if !models.ValidID(userID) {
		return []Entry{}, nil
	}
	var rows []models.Favorite
	err := s.db.WithContext(ctx).
		Preload("Place").
		Preload("Place.Images", "is_primary = ?", true).
		Preload("Place.Tags.Tag").
		Preload("Place.Stats").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, f := range rows {
		p := f.Place
		entry := Entry{
			ID:          p.ID,
			Name:        p.Name,
			Type:        p.Type,
			City:        p.City,
			Address:     p.Address,
			Stats:       p.Stats,
			Tags:        p.Tags,
			FavoritedAt: f.CreatedAt,
		}
		if entry.Tags == nil {
			entry.Tags = []models.PlaceTag{}
		}
		if len(p.Images) > 0 {
			url := publicurl.Absolute(s.baseURL, p.Images[0].URL)
			entry.PrimaryImage = &url
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) record(userID, placeID string, favorited bool) {
	metrics.RecordFavoriteToggle(favorited)
	s.log.WithFields(logrus.Fields{"user_id": userID, "place_id": placeID, "favorited": favorited}).
		Info("favorite toggled")
}
