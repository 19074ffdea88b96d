// Package seed loads the tag vocabulary and a set of demo places.
package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"places_backend/pkg/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tagDef struct {
	name, display string
	category      models.TagCategory
	description   string
}

var tags = []tagDef{
	{"specialty_coffee", "Specialty coffee", models.TagCategoryFood, "High-quality specialty coffee and espresso drinks"},
	{"breakfast_brunch", "Breakfast & brunch", models.TagCategoryFood, ""},
	{"desserts", "Desserts & sweets", models.TagCategoryFood, ""},
	{"light_food", "Light food & snacks", models.TagCategoryFood, ""},
	{"cheap", "Budget friendly", models.TagCategoryPrice, ""},
	{"mid_range", "Mid-range", models.TagCategoryPrice, ""},
	{"quiet", "Quiet / relaxed", models.TagCategoryMood, ""},
	{"lively", "Lively / busy", models.TagCategoryMood, ""},
	{"romantic", "Romantic", models.TagCategoryMood, ""},
	{"laptop_friendly", "Laptop friendly", models.TagCategoryMood, "Good for working or studying on a laptop"},
	{"garden_terrace", "Garden / terrace", models.TagCategoryView, ""},
	{"river_nearby", "Near the river", models.TagCategoryView, ""},
	{"outdoor_seating", "Outdoor seating", models.TagCategoryView, ""},
	{"pet_friendly", "Pet friendly", models.TagCategoryOther, ""},
	{"non_smoking", "Non-smoking", models.TagCategoryOther, ""},
}

// week is opening hours given as weekday and weekend ranges; an empty range
// marks the days closed.
type week struct {
	weekdayOpen, weekdayClose string
	weekendOpen, weekendClose string
}

type placeDef struct {
	name        string
	description string
	address     string
	phone       string
	website     string
	priceLevel  int
	altText     string
	tags        []string
	hours       week
}

var places = []placeDef{
	{
		name:        "Pržionica",
		description: "Specialty coffee roastery and minimalist café in Dorćol, focused on high-quality espresso and filter coffee.",
		address:     "Dobračina 59b, 11000 Belgrade, Serbia",
		phone:       "+381603666678",
		website:     "https://przionica.rs",
		priceLevel:  2,
		altText:     "Interior of Pržionica café in Dorćol",
		tags:        []string{"specialty_coffee", "light_food", "cheap", "quiet", "laptop_friendly", "non_smoking", "outdoor_seating", "pet_friendly"},
		hours:       week{"08:00", "18:00", "09:00", "18:00"},
	},
	{
		name:        "D59B",
		description: "Specialty coffee bar in Gornji Dorćol with cosy interior, terrace and its own roasted coffee.",
		address:     "Kralja Petra 70, 11000 Belgrade, Serbia",
		website:     "https://radio.d59b.com",
		priceLevel:  2,
		altText:     "D59B coffee bar in Dorćol",
		tags:        []string{"specialty_coffee", "light_food", "mid_range", "lively", "laptop_friendly", "outdoor_seating"},
		hours:       week{"07:30", "22:00", "09:00", "22:00"},
	},
	{
		name:        "UGAO Specialty Coffee",
		description: "Modern, pet-friendly specialty coffee shop near the Danube, serving espresso and filter coffee with plant-based milk options.",
		address:     "Dunavska 2i, 11000 Belgrade, Serbia",
		priceLevel:  2,
		altText:     "UGAO Specialty Coffee in Dunavska street",
		tags:        []string{"specialty_coffee", "light_food", "cheap", "quiet", "laptop_friendly", "non_smoking", "outdoor_seating", "pet_friendly", "river_nearby"},
		hours:       week{"08:00", "20:00", "08:00", "20:00"},
	},
	{
		name:        "Kafeterija Magazin 1907",
		description: "Large multi-level Kafeterija location in the city centre, popular for specialty coffee, desserts and co-working.",
		address:     "Kralja Petra 16, 11000 Belgrade, Serbia",
		phone:       "+381113281311",
		website:     "https://kafeterija.com",
		priceLevel:  2,
		altText:     "Kafeterija Magazin 1907 interior",
		tags:        []string{"specialty_coffee", "breakfast_brunch", "desserts", "mid_range", "lively", "laptop_friendly", "outdoor_seating"},
		hours:       week{"07:00", "23:00", "08:00", "23:00"},
	},
	{
		name:        "Koffein",
		description: "Small, cosy specialty coffee bar in Stari Grad, known for carefully prepared espresso drinks.",
		address:     "Uskočka 8, 11000 Belgrade, Serbia",
		website:     "https://www.facebook.com/koffein.belgrade/",
		priceLevel:  2,
		altText:     "Koffein cafe in Uskočka street",
		tags:        []string{"specialty_coffee", "light_food", "cheap", "quiet", "laptop_friendly", "outdoor_seating"},
		hours:       week{"08:00", "22:00", "08:00", "22:00"},
	},
	{
		name:        "Cafe&Factory",
		description: "Roastery and café in Vračar with house blends, cakes and brunch options.",
		address:     "Nevesinjska 34, 11000 Belgrade, Serbia",
		phone:       "+381653675641",
		website:     "https://cafe-factory.net",
		priceLevel:  3,
		altText:     "Cafe&Factory bar and roastery",
		tags:        []string{"specialty_coffee", "light_food", "breakfast_brunch", "desserts", "mid_range", "lively", "laptop_friendly", "outdoor_seating"},
		hours:       week{"08:00", "20:00", "08:00", "15:00"},
	},
	{
		name:        "Bloom",
		description: "Bright breakfast and brunch spot in Dorćol with specialty coffee and homemade pastries.",
		address:     "Dobračina 29, 11000 Belgrade, Serbia",
		priceLevel:  2,
		altText:     "Bloom breakfast & brunch in Dorćol",
		tags:        []string{"specialty_coffee", "breakfast_brunch", "desserts", "mid_range", "quiet", "garden_terrace"},
		hours:       week{"08:00", "16:00", "09:00", "17:00"},
	},
}

// Run inserts missing tags and demo places. Places are matched by name, so
// running it twice changes nothing.
func Run(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	db = db.WithContext(ctx)

	tagIDs := make(map[string]string, len(tags))
	for _, def := range tags {
		tag := models.Tag{Name: def.name, DisplayName: def.display, Category: def.category}
		if def.description != "" {
			d := def.description
			tag.Description = &d
		}
		if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&tag).Error; err != nil {
			return fmt.Errorf("seed tag %s: %w", def.name, err)
		}
		var stored models.Tag
		if err := db.Where("name = ?", def.name).First(&stored).Error; err != nil {
			return fmt.Errorf("load tag %s: %w", def.name, err)
		}
		tagIDs[def.name] = stored.ID
	}
	log.WithField("count", len(tags)).Info("tags seeded")

	created := 0
	for _, def := range places {
		var count int64
		if err := db.Model(&models.Place{}).Where("name = ?", def.name).Count(&count).Error; err != nil {
			return fmt.Errorf("check place %s: %w", def.name, err)
		}
		if count > 0 {
			continue
		}
		if err := db.Transaction(func(tx *gorm.DB) error { return createPlace(tx, def, tagIDs) }); err != nil {
			return fmt.Errorf("seed place %s: %w", def.name, err)
		}
		created++
	}
	log.WithFields(logrus.Fields{"created": created, "total": len(places)}).Info("places seeded")
	return nil
}

func createPlace(tx *gorm.DB, def placeDef, tagIDs map[string]string) error {
	price := def.priceLevel
	place := models.Place{
		Name:        def.name,
		Type:        models.PlaceTypeCafe,
		Description: def.description,
		City:        "Belgrade",
		Address:     def.address,
		Phone:       optional(def.phone),
		Website:     optional(def.website),
		PriceLevel:  &price,
		IsActive:    true,
		Source:      models.PlaceSourceManual,
	}
	if err := tx.Omit("Images", "Tags", "Stats", "WorkingHours").Create(&place).Error; err != nil {
		return err
	}

	hours := make([]models.WorkingHour, 0, len(models.Weekdays))
	for i, day := range models.Weekdays {
		open, shut := def.hours.weekdayOpen, def.hours.weekdayClose
		if i >= 5 {
			open, shut = def.hours.weekendOpen, def.hours.weekendClose
		}
		hours = append(hours, models.WorkingHour{
			PlaceID:   place.ID,
			DayOfWeek: day,
			OpenTime:  optional(open),
			CloseTime: optional(shut),
			IsClosed:  open == "",
		})
	}
	if err := tx.Create(&hours).Error; err != nil {
		return err
	}

	links := make([]models.PlaceTag, 0, len(def.tags))
	for _, name := range def.tags {
		id, ok := tagIDs[name]
		if !ok {
			return fmt.Errorf("unknown tag %q", name)
		}
		links = append(links, models.PlaceTag{PlaceID: place.ID, TagID: id})
	}
	if err := tx.Omit("Tag").Create(&links).Error; err != nil {
		return err
	}

	alt := def.altText
	image := models.PlaceImage{
		PlaceID:   place.ID,
		URL:       "/uploads/places/" + Slug(def.name) + ".jpg",
		IsPrimary: true,
		Source:    models.ImageSourceManual,
		AltText:   &alt,
	}
	if err := tx.Create(&image).Error; err != nil {
		return err
	}
	return tx.Create(&models.PlaceStats{PlaceID: place.ID}).Error
}

var (
	latin    = strings.NewReplacer("š", "s", "đ", "dj", "č", "c", "ć", "c", "ž", "z", "&", "and")
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a place name into the file name used for its bundled image.
func Slug(name string) string {
	s := latin.Replace(strings.ToLower(name))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
