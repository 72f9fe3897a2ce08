package catalog

import (
	"net/mail"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Stock categories accepted for in-store inventory.
const (
	StockRings     = "Anillos"
	StockBracelets = "Pulseras"
	StockNecklaces = "Collares"
	StockEarrings  = "Aretes"
)

// StockCategories lists the valid StockItem categories.
var StockCategories = []string{StockRings, StockBracelets, StockNecklaces, StockEarrings}

// Category is a product type such as rings or earrings.
type Category struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Material is the metal a product is made of.
type Material struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Product is a catalog item with up to three images.
type Product struct {
	ID              int       `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	MainImageURL    string    `json:"main_image_url" db:"main_image_url"`
	Image2URL       string    `json:"image2_url,omitempty" db:"image2_url"`
	Image3URL       string    `json:"image3_url,omitempty" db:"image3_url"`
	Price           float64   `json:"price" db:"price"`
	Slug            string    `json:"slug" db:"slug"`
	SortOrder       int       `json:"order" db:"sort_order"`
	Active          bool      `json:"active" db:"active"`
	IsNew           bool      `json:"is_new" db:"is_new"`
	MetaDescription string    `json:"meta_description,omitempty" db:"meta_description"`
	Keywords        string    `json:"keywords,omitempty" db:"keywords"`
	CategoryID      int       `json:"category_id" db:"category_id"`
	MaterialIDs     []int     `json:"material_ids"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	Category  *Category  `json:"category,omitempty"`
	Materials []Material `json:"materials,omitempty"`
}

// Normalize trims free-text fields.
func (p *Product) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.MainImageURL = strings.TrimSpace(p.MainImageURL)
	p.Image2URL = strings.TrimSpace(p.Image2URL)
	p.Image3URL = strings.TrimSpace(p.Image3URL)
	p.Slug = strings.TrimSpace(p.Slug)
	p.MetaDescription = strings.TrimSpace(p.MetaDescription)
	p.Keywords = strings.TrimSpace(p.Keywords)
}

// Validate checks the fields an admin must provide.
func (p *Product) Validate() error {
	switch {
	case p.Title == "":
		return invalid("title", "title is required")
	case len(p.Title) > 255:
		return invalid("title", "title must be at most 255 characters")
	case p.Description == "":
		return invalid("description", "description is required")
	case p.MainImageURL == "":
		return invalid("main_image_url", "main image is required")
	case p.Price <= 0:
		return invalid("price", "price must be greater than 0")
	case p.CategoryID <= 0:
		return invalid("category_id", "a category must be selected")
	case len(p.MaterialIDs) == 0:
		return invalid("material_ids", "a material must be selected")
	case len(p.MaterialIDs) > 1:
		return invalid("material_ids", "exactly one material may be selected")
	case p.SortOrder < 0:
		return invalid("order", "order cannot be negative")
	}
	return nil
}

// StockItem is a piece of in-store inventory.
type StockItem struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Price     float64   `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	ImageURL  string    `json:"image_url,omitempty" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks stock fields.
func (s *StockItem) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.ImageURL = strings.TrimSpace(s.ImageURL)

	switch {
	case s.Name == "":
		return invalid("name", "product name is required")
	case !slices.Contains(StockCategories, s.Category):
		return invalid("category", "category must be one of "+strings.Join(StockCategories, ", "))
	case s.Price <= 0:
		return invalid("price", "price must be greater than 0")
	case s.Stock < 0:
		return invalid("stock", "stock cannot be negative")
	}
	return nil
}

// CarouselItem is a home page slide.
type CarouselItem struct {
	ID          int       `json:"id" db:"id"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Validate checks carousel fields.
func (c *CarouselItem) Validate() error {
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	c.Description = strings.TrimSpace(c.Description)

	if c.ImageURL == "" {
		return invalid("image_url", "an uploaded image is required")
	}
	if c.Description == "" {
		return invalid("description", "description is required")
	}
	return nil
}

// CustomOrderRequest is a quote request for a custom design.
type CustomOrderRequest struct {
	ID                int       `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Email             string    `json:"email,omitempty" db:"email"`
	Phone             string    `json:"phone,omitempty" db:"phone"`
	Material          string    `json:"material,omitempty" db:"material"`
	Category          string    `json:"category,omitempty" db:"category"`
	Description       string    `json:"description" db:"description"`
	ReferenceImageURL string    `json:"reference_image_url,omitempty" db:"reference_image_url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Validate checks that the request can be answered.
func (r *CustomOrderRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Description = strings.TrimSpace(r.Description)

	switch {
	case r.Name == "":
		return invalid("name", "name is required")
	case r.Email == "" && r.Phone == "":
		return invalid("email", "an email or phone number is required")
	case r.Description == "":
		return invalid("description", "please describe the design")
	case len(r.Description) > 2000:
		return invalid("description", "description must be at most 2000 characters")
	}

	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return invalid("email", "email address is not valid")
		}
	}
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics to a dash.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// reservedProductSlugs are path segments taken by fixed product routes.
var reservedProductSlugs = []string{"showcase"}

// ValidateProductSlug rejects empty slugs and slugs a fixed route would shadow.
func ValidateProductSlug(slug string) error {
	if slug == "" {
		return invalid("slug", "slug must contain letters or digits")
	}
	if slices.Contains(reservedProductSlugs, slug) {
		return invalid("slug", "slug \""+slug+"\" is reserved")
	}
	return nil
}

// GenerateSlug returns a unique product slug: the slugified title suffixed
// with the creation time in Unix milliseconds.
func GenerateSlug(title string, now time.Time) string {
	base := Slugify(title)
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if base == "" {
		return millis
	}
	return base + "-" + millis
}
