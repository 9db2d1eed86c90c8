// Package search provides full-text search over the locally cached books
// using Bleve.
package search

import (
	"github.com/ablbsk/bookworm-api/internal/domain"
)

// BookDocument is the indexed form of a cached book. Counters are left out;
// they change on every add and like and are read from the store instead.
type BookDocument struct {
	ID            string  `json:"id"`
	ExternalID    string  `json:"external_id"`
	Title         string  `json:"title"`
	Authors       string  `json:"authors"`
	Publisher     string  `json:"publisher,omitempty"`
	Description   string  `json:"description,omitempty"`
	Format        string  `json:"format,omitempty"`
	PublishYear   int     `json:"publish_year,omitempty"`
	PageCount     int     `json:"page_count,omitempty"`
	AverageRating float64 `json:"average_rating,omitempty"`
	CreatedAt     int64   `json:"created_at"` // Unix millis
}

// BookToDocument converts a domain.Book to a BookDocument.
func BookToDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:            b.ID,
		ExternalID:    b.ExternalID,
		Title:         b.Title,
		Authors:       b.Authors,
		Publisher:     b.Publisher,
		Description:   b.Description,
		Format:        b.Format,
		PublishYear:   b.PublicationDate.Year,
		PageCount:     b.PageCount,
		AverageRating: b.AverageRating,
		CreatedAt:     b.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve uses Go struct field names by default, while the mapping uses the
// lowercase names, so the conversion is explicit.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"external_id": d.ExternalID,
		"title":       d.Title,
		"authors":     d.Authors,
		"created_at":  d.CreatedAt,
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Format != "" {
		m["format"] = d.Format
	}
	if d.PublishYear > 0 {
		m["publish_year"] = d.PublishYear
	}
	if d.PageCount > 0 {
		m["page_count"] = d.PageCount
	}
	if d.AverageRating > 0 {
		m["average_rating"] = d.AverageRating
	}
	return m
}
