package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CategoryID identifies one of the fixed event categories of the shared store.
type CategoryID string

const (
	CategoryMusic      CategoryID = "6702ad06009a63bba556a1f3"
	CategoryCinema     CategoryID = "6702ae1e009a63bba556a1fd"
	CategoryArts       CategoryID = "6702adbd009a63bba556a1f8"
	CategoryMuseum     CategoryID = "6702ae2d009a63bba556a1fe"
	CategoryActivities CategoryID = "6702adf7009a63bba556a1fb"
	CategoryWorkshop   CategoryID = "6702ae68009a63bba556a201"
	CategoryDance      CategoryID = "6702ae0c009a63bba556a1fc"
	CategoryKids       CategoryID = "6702ad49009a63bba556a1f4"
	CategoryFoodDrinks CategoryID = "6702ad82009a63bba556a1f5"
	CategoryNightlife  CategoryID = "6702ad9e009a63bba556a1f6"
	CategoryServices   CategoryID = "6702adb0009a63bba556a1f7"
)

var knownCategories = map[CategoryID]bool{
	CategoryMusic:      true,
	CategoryCinema:     true,
	CategoryArts:       true,
	CategoryMuseum:     true,
	CategoryActivities: true,
	CategoryWorkshop:   true,
	CategoryDance:      true,
	CategoryKids:       true,
	CategoryFoodDrinks: true,
	CategoryNightlife:  true,
	CategoryServices:   true,
}

// IsKnown reports whether the id belongs to the fixed category set.
func (c CategoryID) IsKnown() bool {
	return knownCategories[c]
}

// GeoPoint is a GeoJSON-style point as stored by the shared store.
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // lng, lat
}

func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Event is the canonical, storage-ready record for one scraped event.
type Event struct {
	Title       string     `json:"title"`
	Category    CategoryID `json:"category"`
	StartYear   int        `json:"startYear"`
	LastYear    int        `json:"lastYear"`
	StartMonth  string     `json:"startMonth"`
	LastMonth   string     `json:"lastMonth"`
	StartDay    string     `json:"startDay"`
	LastDay     string     `json:"lastDay"`
	Time        *string    `json:"time"`
	EndTime     *string    `json:"endTime"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Coordinates *GeoPoint  `json:"coordinates"`
	PostalCode  string     `json:"postalCode"`
	MapImageURL string     `json:"mapImageUrl"`
	ImgURL      string     `json:"imgUrl"`
	FullLink    string     `json:"fullLink"`
	ExternalURL string     `json:"link,omitempty"`
	Island      string     `json:"island"`
	UserID      string     `json:"userId"`
	Source      string     `json:"source"`
}

// SetDates fills the closed date range. A nil end means a single-day event.
func (e *Event) SetDates(from time.Time, to *time.Time) {
	end := from
	if to != nil {
		end = *to
	}
	e.StartYear = from.Year()
	e.StartMonth = twoDigits(int(from.Month()))
	e.StartDay = twoDigits(from.Day())
	e.LastYear = end.Year()
	e.LastMonth = twoDigits(int(end.Month()))
	e.LastDay = twoDigits(end.Day())
}

// StartDate returns the start of the range as a UTC date.
func (e *Event) StartDate() (time.Time, error) {
	return parseParts(e.StartYear, e.StartMonth, e.StartDay)
}

// LastDate returns the end of the range as a UTC date.
func (e *Event) LastDate() (time.Time, error) {
	return parseParts(e.LastYear, e.LastMonth, e.LastDay)
}

var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the record before it is handed to the store.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidEvent)
	}
	if !e.Category.IsKnown() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	}
	start, err := e.StartDate()
	if err != nil {
		return fmt.Errorf("%w: start date: %v", ErrInvalidEvent, err)
	}
	end, err := e.LastDate()
	if err != nil {
		return fmt.Errorf("%w: last date: %v", ErrInvalidEvent, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: range ends before it starts", ErrInvalidEvent)
	}
	if !isAbsolute(e.FullLink) {
		return fmt.Errorf("%w: link %q is not absolute", ErrInvalidEvent, e.FullLink)
	}
	if e.ImgURL != "" && !isAbsolute(e.ImgURL) {
		return fmt.Errorf("%w: image %q is not absolute", ErrInvalidEvent, e.ImgURL)
	}
	return nil
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func twoDigits(n int) string {
	return fmt.Sprintf("%02d", n)
}

func parseParts(year int, month, day string) (time.Time, error) {
	if len(month) != 2 || len(day) != 2 {
		return time.Time{}, fmt.Errorf("month %q / day %q must be two digits", month, day)
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s-%s", year, month, day))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
