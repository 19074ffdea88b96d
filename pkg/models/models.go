package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlaceType string

const (
	PlaceTypeCafe       PlaceType = "CAFE"
	PlaceTypeRestaurant PlaceType = "RESTAURANT"
	PlaceTypeBar        PlaceType = "BAR"
	PlaceTypeClub       PlaceType = "CLUB"
	PlaceTypeOther      PlaceType = "OTHER"
)

// Valid reports whether t is one of the known place types.
func (t PlaceType) Valid() bool {
	switch t {
	case PlaceTypeCafe, PlaceTypeRestaurant, PlaceTypeBar, PlaceTypeClub, PlaceTypeOther:
		return true
	}
	return false
}

type PlaceSource string

const (
	PlaceSourceManual   PlaceSource = "MANUAL"
	PlaceSourceImported PlaceSource = "IMPORTED"
	PlaceSourcePartner  PlaceSource = "PARTNER"
)

type ImageSource string

const (
	ImageSourceManual    ImageSource = "MANUAL"
	ImageSourceURLImport ImageSource = "URL_IMPORT"
)

type TagCategory string

const (
	TagCategoryFood  TagCategory = "FOOD"
	TagCategoryPrice TagCategory = "PRICE"
	TagCategoryMood  TagCategory = "MOOD"
	TagCategoryView  TagCategory = "VIEW"
	TagCategoryOther TagCategory = "OTHER"
)

type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Weekdays lists the days in display order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

type Gender string

const (
	GenderMan   Gender = "MAN"
	GenderWoman Gender = "WOMAN"
)

type Place struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string      `gorm:"size:200;not null;index" json:"name"`
	Type        PlaceType   `gorm:"size:20;not null;index" json:"type"`
	Description string      `json:"description"`
	City        string      `gorm:"size:120;not null" json:"city"`
	Address     string      `json:"address"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	Phone       *string     `gorm:"size:40" json:"phone"`
	Website     *string     `json:"website"`
	PriceLevel  *int        `gorm:"check:price_level >= 1 AND price_level <= 4" json:"priceLevel"`
	IsActive    bool        `gorm:"not null;default:true;index" json:"isActive"`
	Source      PlaceSource `gorm:"size:20;not null;default:'MANUAL'" json:"source"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	Images       []PlaceImage  `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE" json:"images"`
	Tags         []PlaceTag    `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE" json:"tags"`
	Stats        *PlaceStats   `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE" json:"stats"`
	WorkingHours []WorkingHour `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE" json:"workingHours,omitempty"`
}

type Tag struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string      `gorm:"size:80;not null;uniqueIndex" json:"name"`
	DisplayName string      `gorm:"size:120" json:"displayName"`
	Category    TagCategory `gorm:"size:20;not null" json:"category"`
	Description *string     `json:"description"`
}

type PlaceTag struct {
	PlaceID string `gorm:"type:uuid;primaryKey" json:"placeId"`
	TagID   string `gorm:"type:uuid;primaryKey;index" json:"tagId"`
	Tag     Tag    `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE" json:"tag"`
}

// PlaceImage.SortOrder is stored as sort_order since "order" is reserved in SQL.
type PlaceImage struct {
	ID        string      `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID   string      `gorm:"type:uuid;not null;index" json:"placeId"`
	URL       string      `gorm:"not null" json:"url"`
	IsPrimary bool        `gorm:"not null;default:false" json:"isPrimary"`
	SortOrder int         `gorm:"not null;default:0" json:"order"`
	Source    ImageSource `gorm:"size:20;not null;default:'MANUAL'" json:"source"`
	AltText   *string     `json:"altText"`
	CreatedAt time.Time   `json:"createdAt"`
}

type WorkingHour struct {
	ID        string  `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_place_day" json:"placeId"`
	DayOfWeek Weekday `gorm:"size:10;not null;uniqueIndex:idx_place_day" json:"dayOfWeek"`
	OpenTime  *string `gorm:"size:5" json:"openTime"`
	CloseTime *string `gorm:"size:5" json:"closeTime"`
	IsClosed  bool    `gorm:"not null;default:false" json:"isClosed"`
}

// PlaceStats is maintained outside this service; it is only read here.
type PlaceStats struct {
	PlaceID       string    `gorm:"type:uuid;primaryKey" json:"placeId"`
	TotalVisits   int       `gorm:"not null;default:0" json:"totalVisits"`
	TotalPlanned  int       `gorm:"not null;default:0" json:"totalPlanned"`
	TotalReviews  int       `gorm:"not null;default:0" json:"totalReviews"`
	AvgRating     *float64  `json:"avgRating"`
	TrendingScore *float64  `json:"trendingScore"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Username     string    `gorm:"size:80;not null;uniqueIndex" json:"username"`
	Name         string    `gorm:"size:80;not null" json:"name"`
	Surname      string    `gorm:"size:80;not null" json:"surname"`
	FullName     string    `gorm:"size:161" json:"fullName"`
	Gender       *Gender   `gorm:"size:10" json:"gender"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Favorite struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"userId"`
	PlaceID   string    `gorm:"type:uuid;primaryKey;index" json:"placeId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Place Place `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE" json:"-"`
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Place{}, &Tag{}, &PlaceTag{}, &PlaceImage{}, &WorkingHour{}, &PlaceStats{}, &User{}, &Favorite{},
	}
}

// ValidID reports whether s can be an entity id. Ids are uuid columns, and
// postgres rejects malformed values instead of matching nothing.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (p *Place) BeforeCreate(*gorm.DB) error       { newID(&p.ID); return nil }
func (t *Tag) BeforeCreate(*gorm.DB) error         { newID(&t.ID); return nil }
func (i *PlaceImage) BeforeCreate(*gorm.DB) error  { newID(&i.ID); return nil }
func (w *WorkingHour) BeforeCreate(*gorm.DB) error { newID(&w.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error        { newID(&u.ID); return nil }
