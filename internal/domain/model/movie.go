package model

import (
	"regexp"
	"strconv"
	"strings"
)

// NoOverview is the overview used when no external description is available.
const NoOverview = "No description available."

// MaxCastMembers is the number of billed cast members kept on an enriched item.
const MaxCastMembers = 5

var (
	yearPattern        = regexp.MustCompile(`\((\d{4})\)`)
	parenthesesPattern = regexp.MustCompile(`\([^)]*\)`)
)

// CatalogItem is a bare catalog record as served by the recommendation API.
// Titles follow the "Name (YYYY)" convention but the year is optional.
type CatalogItem struct {
	ID    int
	Title string
}

// CastMember is a billed cast entry from the external metadata source.
type CastMember struct {
	ID          int
	Name        string
	Character   string
	ProfilePath string
	Order       int
}

// EnrichedItem is a CatalogItem augmented with external metadata.
// Optional fields hold neutral values when enrichment found nothing:
// nil pointers, empty slices, zero numbers.
type EnrichedItem struct {
	CatalogItem

	TMDBID         int
	PosterURL      *string
	BackdropURL    *string
	Overview       string
	ExternalRating float64
	VoteCount      int
	ReleaseDate    string
	Genres         []string
	Cast           []CastMember
	Director       string
	RuntimeMinutes int
	TrailerKey     *string
}

// NewFallbackItem returns item with every enrichment field set to its neutral value.
func NewFallbackItem(item CatalogItem) EnrichedItem {
	return EnrichedItem{
		CatalogItem: item,
		Overview:    NoOverview,
		Genres:      []string{},
		Cast:        []CastMember{},
	}
}

// IsEnriched reports whether the item was matched against an external record.
func (e *EnrichedItem) IsEnriched() bool {
	return e.TMDBID != 0
}

// ExtractYear returns the first parenthesized four-digit year in title.
func ExtractYear(title string) (int, bool) {
	m := yearPattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// StripYear removes parenthesized groups such as "(1995)" or alternate titles
// and normalizes the remaining whitespace.
func StripYear(title string) string {
	cleaned := parenthesesPattern.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// ParseReleaseYear returns the year of a "YYYY-MM-DD" release date, or 0.
func ParseReleaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}
