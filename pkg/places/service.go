package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"places_backend/pkg/apperr"
	"places_backend/pkg/database"
	"places_backend/pkg/models"
	"places_backend/pkg/publicurl"

	"gorm.io/gorm"
)

// ImageOrder is the display order for a place's images: primary first,
// then explicit order, newest first on ties.
const ImageOrder = "is_primary DESC, sort_order ASC, created_at DESC"

// Filter narrows a search. Zero values mean "no filter".
type Filter struct {
	Query string
	Type  models.PlaceType
	// Tags matches places carrying at least one of the names.
	Tags []string
}

type Service struct {
	db      *gorm.DB
	baseURL string
}

func NewService(db *gorm.DB, publicBaseURL string) *Service {
	return &Service{db: db, baseURL: publicBaseURL}
}

// Search returns active places matching every supplied filter, ordered by name.
func (s *Service) Search(ctx context.Context, f Filter) ([]models.Place, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("invalid place type",
			apperr.FieldError{Field: "type", Error: "type must be one of CAFE, RESTAURANT, BAR, CLUB, OTHER"})
	}

	db := s.db.WithContext(ctx)
	query := decorate(db.Model(&models.Place{})).Where("places.is_active = ?", true)

	if term := strings.TrimSpace(f.Query); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		// sqlite's LOWER folds ASCII only; unicode_lower is registered by the
		// database package.
		cond := `unicode_lower(places.name) LIKE @p ESCAPE '\' OR unicode_lower(places.description) LIKE @p ESCAPE '\'` +
			` OR unicode_lower(places.city) LIKE @p ESCAPE '\' OR unicode_lower(places.address) LIKE @p ESCAPE '\'`
		if database.IsPostgres(db) {
			cond = `places.name ILIKE @p ESCAPE '\' OR places.description ILIKE @p ESCAPE '\'` +
				` OR places.city ILIKE @p ESCAPE '\' OR places.address ILIKE @p ESCAPE '\'`
		}
		query = query.Where("("+cond+")", sql.Named("p", pattern))
	}

	if f.Type != "" {
		query = query.Where("places.type = ?", f.Type)
	}

	if len(f.Tags) > 0 {
		tagged := db.Table("place_tags").
			Select("place_tags.place_id").
			Joins("JOIN tags ON tags.id = place_tags.tag_id").
			Where("tags.name IN ?", f.Tags)
		query = query.Where("places.id IN (?)", tagged)
	}

	var result []models.Place
	if err := query.Order("places.name ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	s.absolutize(result)
	return result, nil
}

// List returns every place, active or not, ordered by name.
func (s *Service) List(ctx context.Context) ([]models.Place, error) {
	var result []models.Place
	err := decorate(s.db.WithContext(ctx)).Order("name ASC").Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	s.absolutize(result)
	return result, nil
}

// Get returns one place with its working hours.
func (s *Service) Get(ctx context.Context, id string) (*models.Place, error) {
	if !models.ValidID(id) {
		return nil, apperr.NotFound("Place not found")
	}
	var place models.Place
	err := decorate(s.db.WithContext(ctx)).Preload("WorkingHours").Where("id = ?", id).First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Place not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get place: %w", err)
	}
	sortHours(place.WorkingHours)
	s.absolutize([]models.Place{place})
	return &place, nil
}

// Find loads the bare place row, without associations.
func (s *Service) Find(ctx context.Context, id string) (*models.Place, error) {
	if !models.ValidID(id) {
		return nil, apperr.NotFound("Place not found")
	}
	var place models.Place
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Place not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find place: %w", err)
	}
	return &place, nil
}

func (s *Service) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("category ASC, name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func decorate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order(ImageOrder) }).
		Preload("Tags.Tag").
		Preload("Stats")
}

// absolutize rewrites image URLs in place; the slice shares backing arrays
// with the caller's places.
func (s *Service) absolutize(places []models.Place) {
	for i := range places {
		for j := range places[i].Images {
			places[i].Images[j].URL = publicurl.Absolute(s.baseURL, places[i].Images[j].URL)
		}
	}
}

func sortHours(hours []models.WorkingHour) {
	rank := make(map[models.Weekday]int, len(models.Weekdays))
	for i, d := range models.Weekdays {
		rank[d] = i
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return rank[hours[i].DayOfWeek] < rank[hours[j].DayOfWeek]
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ParseTags splits a comma separated tag list, dropping blanks and repeats.
func ParseTags(raw string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
