package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Category groups catalog products
type Category struct {
	ID          int64     `json:"category_id" db:"id"`
	Name        string    `json:"category_name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CategoryRequest represents the data needed to create a category
type CategoryRequest struct {
	Name        string `json:"category_name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

var (
	// lowercase letters, numbers, and hyphens only
	slugRegex      = regexp.MustCompile(`^[a-z0-9-]+$`)
	slugStripRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

// Validate validates category creation data, deriving the slug from the name
// when none was supplied
func (req *CategoryRequest) Validate() error {
	if req.Slug == "" {
		req.Slug = GenerateSlug(req.Name)
	}

	if err := validateCategoryName(req.Name); err != nil {
		return err
	}

	if err := validateCategorySlug(req.Slug); err != nil {
		return err
	}

	// Description is optional
	if len(req.Description) > 500 {
		return errors.New("category description must be less than 500 characters")
	}

	return nil
}

func validateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("category name is required")
	}

	if len(name) > 100 {
		return errors.New("category name must be less than 100 characters")
	}

	return nil
}

func validateCategorySlug(slug string) error {
	if slug == "" {
		return errors.New("category slug is required")
	}

	if len(slug) > 100 {
		return errors.New("category slug must be less than 100 characters")
	}

	if !slugRegex.MatchString(slug) {
		return errors.New("category slug can only contain lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return errors.New("category slug cannot start or end with a hyphen")
	}

	if strings.Contains(slug, "--") {
		return errors.New("category slug cannot contain consecutive hyphens")
	}

	return nil
}

// GenerateSlug generates a URL-friendly slug from the category name
func GenerateSlug(name string) string {
	slug := slugStripRegex.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
