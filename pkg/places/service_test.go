package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"places_backend/pkg/apperr"
	"places_backend/pkg/database"
	"places_backend/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	return db
}

func createTag(t *testing.T, db *gorm.DB, name string) models.Tag {
	tag := models.Tag{Name: name, DisplayName: name, Category: models.TagCategoryMood}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func createPlace(t *testing.T, db *gorm.DB, place models.Place, tags ...models.Tag) models.Place {
	if place.Type == "" {
		place.Type = models.PlaceTypeCafe
	}
	if place.City == "" {
		place.City = "Belgrade"
	}
	active := place.IsActive
	require.NoError(t, db.Create(&place).Error)
	if !active {
		require.NoError(t, db.Model(&place).Update("is_active", false).Error)
	}
	for _, tag := range tags {
		require.NoError(t, db.Create(&models.PlaceTag{PlaceID: place.ID, TagID: tag.ID}).Error)
	}
	return place
}

func names(places []models.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.Name
	}
	return out
}

func TestSearchTagsUseAnySemantics(t *testing.T) {
	db := setupTestDB(t)
	cheap := createTag(t, db, "cheap")
	quiet := createTag(t, db, "quiet")
	lively := createTag(t, db, "lively")
	createPlace(t, db, models.Place{Name: "Only Cheap", IsActive: true}, cheap)
	createPlace(t, db, models.Place{Name: "Only Quiet", IsActive: true}, quiet)
	createPlace(t, db, models.Place{Name: "Both", IsActive: true}, cheap, quiet)
	createPlace(t, db, models.Place{Name: "Neither", IsActive: true}, lively)

	s := NewService(db, "")
	result, err := s.Search(context.Background(), Filter{Tags: []string{"cheap", "quiet"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Both", "Only Cheap", "Only Quiet"}, names(result))
}

func TestSearchFreeTextMatchesAnyFieldCaseInsensitively(t *testing.T) {
	db := setupTestDB(t)
	createPlace(t, db, models.Place{Name: "Pržionica", Description: "Roastery in Dorćol", IsActive: true})
	createPlace(t, db, models.Place{Name: "Bloom", Description: "Brunch spot", Address: "Gospodar Jevremova 23", IsActive: true})
	createPlace(t, db, models.Place{Name: "Elsewhere", Description: "Nothing here", IsActive: true})

	s := NewService(db, "")
	result, err := s.Search(context.Background(), Filter{Query: "dorćol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pržionica"}, names(result))

	result, err = s.Search(context.Background(), Filter{Query: "JEVREMOVA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bloom"}, names(result))

	result, err = s.Search(context.Background(), Filter{Query: "belgrade"})
	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	db := setupTestDB(t)
	createPlace(t, db, models.Place{Name: "Kafana", Description: "U DORĆOLU", IsActive: true})
	createPlace(t, db, models.Place{Name: "ŠANK", IsActive: true})
	createPlace(t, db, models.Place{Name: "Other", IsActive: true})

	s := NewService(db, "")
	result, err := s.Search(context.Background(), Filter{Query: "dorćol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kafana"}, names(result))

	result, err = s.Search(context.Background(), Filter{Query: "šank"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ŠANK"}, names(result))
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	createPlace(t, db, models.Place{Name: "100% Coffee", IsActive: true})
	createPlace(t, db, models.Place{Name: "Plain", IsActive: true})

	result, err := NewService(db, "").Search(context.Background(), Filter{Query: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Coffee"}, names(result))
}

func TestSearchCombinesFiltersAndSkipsInactive(t *testing.T) {
	db := setupTestDB(t)
	quiet := createTag(t, db, "quiet")
	createPlace(t, db, models.Place{Name: "Quiet Bar", Type: models.PlaceTypeBar, IsActive: true}, quiet)
	createPlace(t, db, models.Place{Name: "Quiet Cafe", Type: models.PlaceTypeCafe, IsActive: true}, quiet)
	createPlace(t, db, models.Place{Name: "Closed Bar", Type: models.PlaceTypeBar, IsActive: false}, quiet)

	result, err := NewService(db, "").Search(context.Background(), Filter{Type: models.PlaceTypeBar, Tags: []string{"quiet"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quiet Bar"}, names(result))
}

func TestSearchRejectsUnknownType(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewService(db, "").Search(context.Background(), Filter{Type: "CASINO"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListIncludesInactivePlaces(t *testing.T) {
	db := setupTestDB(t)
	createPlace(t, db, models.Place{Name: "Beta", IsActive: true})
	createPlace(t, db, models.Place{Name: "Alpha", IsActive: false})

	result, err := NewService(db, "").List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names(result))
}

func TestImagesAreOrderedAndAbsolute(t *testing.T) {
	db := setupTestDB(t)
	place := createPlace(t, db, models.Place{Name: "Bloom", IsActive: true})
	now := time.Now()
	images := []models.PlaceImage{
		{PlaceID: place.ID, URL: "/uploads/places/old.jpg", SortOrder: 1, CreatedAt: now.Add(-time.Hour)},
		{PlaceID: place.ID, URL: "/uploads/places/new.jpg", SortOrder: 1, CreatedAt: now},
		{PlaceID: place.ID, URL: "https://cdn.example.com/first.jpg", SortOrder: 0, CreatedAt: now},
		{PlaceID: place.ID, URL: "/uploads/places/primary.jpg", SortOrder: 5, IsPrimary: true, CreatedAt: now},
	}
	require.NoError(t, db.Create(&images).Error)

	result, err := NewService(db, "https://api.example.com").Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, result, 1)

	var urls []string
	for _, img := range result[0].Images {
		urls = append(urls, img.URL)
	}
	assert.Equal(t, []string{
		"https://api.example.com/uploads/places/primary.jpg",
		"https://cdn.example.com/first.jpg",
		"https://api.example.com/uploads/places/new.jpg",
		"https://api.example.com/uploads/places/old.jpg",
	}, urls)
}

func TestGetReturnsDetailWithOrderedHours(t *testing.T) {
	db := setupTestDB(t)
	place := createPlace(t, db, models.Place{Name: "Kuca", IsActive: true})
	open, closeAt := "09:00", "20:00"
	hours := []models.WorkingHour{
		{PlaceID: place.ID, DayOfWeek: models.Sunday, IsClosed: true},
		{PlaceID: place.ID, DayOfWeek: models.Monday, OpenTime: &open, CloseTime: &closeAt},
		{PlaceID: place.ID, DayOfWeek: models.Wednesday, OpenTime: &open, CloseTime: &closeAt},
	}
	require.NoError(t, db.Create(&hours).Error)
	require.NoError(t, db.Create(&models.PlaceStats{PlaceID: place.ID, TotalVisits: 7}).Error)

	got, err := NewService(db, "").Get(context.Background(), place.ID)
	require.NoError(t, err)
	require.Len(t, got.WorkingHours, 3)
	assert.Equal(t, models.Monday, got.WorkingHours[0].DayOfWeek)
	assert.Equal(t, models.Sunday, got.WorkingHours[2].DayOfWeek)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 7, got.Stats.TotalVisits)

	_, err = NewService(db, "").Get(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"cheap", "quiet"}, ParseTags(" cheap, quiet,,cheap "))
	assert.Nil(t, ParseTags(""))
}

func TestSearchHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	cheap := createTag(t, db, "cheap")
	quiet := createTag(t, db, "quiet")
	createPlace(t, db, models.Place{Name: "A", IsActive: true}, cheap)
	createPlace(t, db, models.Place{Name: "B", IsActive: true}, quiet)

	r := gin.New()
	NewHandler(NewService(db, "")).Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/search?tags=cheap,quiet&type=cafe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response, 2)
	assert.Equal(t, "A", response[0]["name"])
	assert.NotNil(t, response[0]["tags"])
}

func TestGetHandlerMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	createPlace(t, db, models.Place{Name: "A", IsActive: true})

	r := gin.New()
	NewHandler(NewService(db, "")).Register(r)

	for _, id := range []string{"abc", "1", "not-a-uuid-at-all"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Contains(t, w.Body.String(), "Place not found", id)
	}
}

func TestTagsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	createTag(t, db, "quiet")

	r := gin.New()
	NewHandler(NewService(db, "")).Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/tags", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"quiet"`)
}

func TestRequirePlace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	place := createPlace(t, db, models.Place{Name: "A", IsActive: true})

	r := gin.New()
	r.GET("/places/:placeId/images", RequirePlace(NewService(db, "")), func(c *gin.Context) {
		p := c.MustGet(ContextKey).(*models.Place)
		c.String(http.StatusOK, p.Name)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/"+place.ID+"/images", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/nope/images", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Place not found")
}
