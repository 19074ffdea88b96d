package images

import (
	"context"
	"errors"
	"fmt"

	"places_backend/pkg/apperr"
	"places_backend/pkg/database"
	"places_backend/pkg/metrics"
	"places_backend/pkg/models"
	"places_backend/pkg/places"
	"places_backend/pkg/publicurl"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewImage describes an image row about to be attached to a place.
type NewImage struct {
	URL       string
	IsPrimary bool
	Source    models.ImageSource
	AltText   *string
}

type Service struct {
	db      *gorm.DB
	storage *Storage
	fetcher *Fetcher
	baseURL string
	log     logrus.FieldLogger
}

func NewService(db *gorm.DB, storage *Storage, fetcher *Fetcher, publicBaseURL string, log logrus.FieldLogger) *Service {
	return &Service{db: db, storage: storage, fetcher: fetcher, baseURL: publicBaseURL, log: log}
}

// Create attaches an image to a place. When the image is primary every other
// image of the place loses the flag in the same transaction.
func (s *Service) Create(ctx context.Context, placeID string, in NewImage) (*models.PlaceImage, error) {
	image := &models.PlaceImage{
		PlaceID:   placeID,
		URL:       in.URL,
		IsPrimary: in.IsPrimary,
		Source:    in.Source,
		AltText:   in.AltText,
	}
	if image.Source == "" {
		image.Source = models.ImageSourceManual
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlace(tx, placeID); err != nil {
			return err
		}
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("create image: %w", err)
		}
		if image.IsPrimary {
			return clearPrimary(tx, placeID, image.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"place_id": placeID, "image_id": image.ID, "primary": image.IsPrimary, "source": image.Source,
	}).Info("image created")
	return s.absolute(image), nil
}

// Upload stores an uploaded file and attaches it to the place.
func (s *Service) Upload(ctx context.Context, placeID string, data []byte, filename string, primary bool) (*models.PlaceImage, error) {
	url, err := s.storage.Save(data, Extension(filename))
	if err != nil {
		return nil, err
	}
	image, err := s.Create(ctx, placeID, NewImage{URL: url, IsPrimary: primary, Source: models.ImageSourceManual})
	if err != nil {
		s.discard(url)
		return nil, err
	}
	metrics.RecordImageOperation("upload")
	return image, nil
}

// Import downloads sourceURL, stores it and attaches it to the place.
func (s *Service) Import(ctx context.Context, placeID, sourceURL string, primary bool) (*models.PlaceImage, error) {
	data, contentType, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		s.log.WithError(err).WithField("source_url", sourceURL).Warn("image import failed")
		return nil, err
	}
	url, err := s.storage.Save(data, ExtensionForContentType(contentType))
	if err != nil {
		return nil, err
	}
	image, err := s.Create(ctx, placeID, NewImage{URL: url, IsPrimary: primary, Source: models.ImageSourceURLImport})
	if err != nil {
		s.discard(url)
		return nil, err
	}
	metrics.RecordImageOperation("import")
	return image, nil
}

// List returns the place's images primary first, then by order, newest first.
func (s *Service) List(ctx context.Context, placeID string) ([]models.PlaceImage, error) {
	if !models.ValidID(placeID) {
		return nil, apperr.NotFound("Place not found")
	}
	var result []models.PlaceImage
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Order(places.ImageOrder).Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	for i := range result {
		result[i].URL = publicurl.Absolute(s.baseURL, result[i].URL)
	}
	return result, nil
}

// SetPrimary makes imageID the only primary image of placeID.
func (s *Service) SetPrimary(ctx context.Context, placeID, imageID string) (*models.PlaceImage, error) {
	var image models.PlaceImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlace(tx, placeID); err != nil {
			return err
		}
		if err := findImage(tx, placeID, imageID, &image); err != nil {
			return err
		}
		if err := clearPrimary(tx, placeID, image.ID); err != nil {
			return err
		}
		if err := tx.Model(&image).Update("is_primary", true).Error; err != nil {
			return fmt.Errorf("set primary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordImageOperation("set_primary")
	s.log.WithFields(logrus.Fields{"place_id": placeID, "image_id": imageID}).Info("primary image changed")
	return s.absolute(&image), nil
}

// Delete removes an image and returns it. Deleting the primary image leaves
// the place without one.
func (s *Service) Delete(ctx context.Context, placeID, imageID string) (*models.PlaceImage, error) {
	var image models.PlaceImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlace(tx, placeID); err != nil {
			return err
		}
		if err := findImage(tx, placeID, imageID, &image); err != nil {
			return err
		}
		if err := tx.Delete(&image).Error; err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.discard(image.URL)
	metrics.RecordImageOperation("delete")
	s.log.WithFields(logrus.Fields{"place_id": placeID, "image_id": imageID, "primary": image.IsPrimary}).
		Info("image deleted")
	return s.absolute(&image), nil
}

func (s *Service) absolute(image *models.PlaceImage) *models.PlaceImage {
	image.URL = publicurl.Absolute(s.baseURL, image.URL)
	return image
}

func (s *Service) discard(url string) {
	if err := s.storage.Remove(url); err != nil {
		s.log.WithError(err).WithField("url", url).Error("failed to remove image file")
	}
}

// lockPlace serializes primary-flag changes per place.
func lockPlace(tx *gorm.DB, placeID string) error {
	if !models.ValidID(placeID) {
		return apperr.NotFound("Place not found")
	}
	query := tx.Select("id")
	if database.IsPostgres(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var place models.Place
	err := query.Where("id = ?", placeID).First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Place not found")
	}
	if err != nil {
		return fmt.Errorf("lock place: %w", err)
	}
	return nil
}

func findImage(tx *gorm.DB, placeID, imageID string, image *models.PlaceImage) error {
	if !models.ValidID(imageID) {
		return apperr.NotFound("Image not found")
	}
	err := tx.Where("id = ? AND place_id = ?", imageID, placeID).First(image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Image not found")
	}
	if err != nil {
		return fmt.Errorf("find image: %w", err)
	}
	return nil
}

func clearPrimary(tx *gorm.DB, placeID, keepID string) error {
	err := tx.Model(&models.PlaceImage{}).
		Where("place_id = ? AND id <> ? AND is_primary = ?", placeID, keepID, true).
		Update("is_primary", false).Error
	if err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	return nil
}
