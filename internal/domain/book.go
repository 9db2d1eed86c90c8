// Package domain contains the entities shared by the bookworm store, catalog and services.
package domain

import (
	"fmt"
	"time"
)

// BookFields are the descriptive fields of a book. They are written once, by
// whichever request first caches the book, and never overwritten by later fetches.
type BookFields struct {
	Title           string          `json:"title"`
	Authors         string          `json:"authors"`
	CoverURL        string          `json:"cover_url,omitempty"`
	PageCount       int             `json:"page_count"`
	AverageRating   float64         `json:"average_rating"`
	Description     string          `json:"description,omitempty"`
	Publisher       string          `json:"publisher,omitempty"`
	PublicationDate PublicationDate `json:"publication_date"`
	Format          string          `json:"format,omitempty"`
}

// Book is a catalog book cached locally and shared by every collection that
// references it.
type Book struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	BookFields

	// ReferenceCount is the number of collections containing the book.
	ReferenceCount int `json:"reference_count"`
	// LikeCount is the number of accounts liking the book.
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Unreferenced reports whether no collection holds or likes the book.
func (b *Book) Unreferenced() bool {
	return b.ReferenceCount == 0 && b.LikeCount == 0
}

// PublicationDate is a possibly partial date; zero parts are unknown.
type PublicationDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether nothing about the date is known.
func (d PublicationDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the known prefix of the date: "2006", "2006-01" or "2006-01-02".
func (d PublicationDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// BookView is a book as seen by one account.
type BookView struct {
	Book
	LikeStatus bool `json:"like_status"`
	ReadStatus bool `json:"read_status"`
	ReadPages  int  `json:"read_pages"`
}

// TopBooks holds the two independent popularity rankings.
type TopBooks struct {
	TopLiked      []Book `json:"top_liked"`
	TopReferenced []Book `json:"top_referenced"`
}
