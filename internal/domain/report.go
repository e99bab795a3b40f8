package domain

import (
	"math"
	"strings"
	"time"
)

// Category classifies the social atmosphere a report describes.
type Category string

const (
	CategoryCrowded    Category = "Crowded"
	CategoryNoisy      Category = "Noisy"
	CategoryFestive    Category = "Festive"
	CategoryCalm       Category = "Calm"
	CategorySuspicious Category = "Suspicious"
)

// Categories lists every recognized category in display order.
var Categories = []Category{
	CategoryCrowded,
	CategoryNoisy,
	CategoryFestive,
	CategoryCalm,
	CategorySuspicious,
}

// ParseCategory validates a raw category string, case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ValidationError{Field: "category", Reason: "must be one of Crowded, Noisy, Festive, Calm, Suspicious"}
}

// Report is a persisted vibe observation. CreatedAt is set once at insert
// time; Upvotes and Downvotes are mutated only by vote operations and never
// decrease.
type Report struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Category  Category  `json:"category"`
	Context   string    `json:"context"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	CreatedAt time.Time `json:"created_at"`
	Upvotes   int64     `json:"upvotes"`
	Downvotes int64     `json:"downvotes"`
}

// VoteKind selects which counter a vote increments.
type VoteKind string

const (
	Upvote   VoteKind = "up"
	Downvote VoteKind = "down"
)

// ParseVoteKind validates a raw vote kind string.
func ParseVoteKind(s string) (VoteKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "upvote":
		return Upvote, nil
	case "down", "downvote":
		return Downvote, nil
	}
	return "", ValidationError{Field: "vote", Reason: "must be up or down"}
}

// ReportFilter narrows a report listing. Nil fields match everything.
type ReportFilter struct {
	Category *Category
	Since    *time.Time
}

// ValidateReportInput checks submission input against the rules in the data
// model: recognized category, non-empty context, finite in-range coordinates.
// The first violation found is returned as a ValidationError.
func ValidateReportInput(category Category, context string, lat, lon float64) error {
	if _, err := ParseCategory(string(category)); err != nil {
		return err
	}
	if strings.TrimSpace(context) == "" {
		return ValidationError{Field: "context", Reason: "must not be empty"}
	}
	return ValidateCoordinates(lat, lon)
}

// ValidateCoordinates checks that a coordinate pair is finite and in range.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return ValidationError{Field: "lat", Reason: "must be a finite value in [-90, 90]"}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return ValidationError{Field: "lon", Reason: "must be a finite value in [-180, 180]"}
	}
	return nil
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
