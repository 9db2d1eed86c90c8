package service

import (
	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/normalize"
)

// AddBookRequest describes a book to add to a collection. Only ExternalID is
// required: when no descriptive field is set, the book is taken from the local
// cache or fetched from the catalog.
type AddBookRequest struct {
	ExternalID      string                 `json:"external_id" validate:"required,external_id"`
	Title           string                 `json:"title,omitempty" validate:"max=500"`
	Authors         string                 `json:"authors,omitempty" validate:"max=1000"`
	CoverURL        string                 `json:"cover_url,omitempty" validate:"omitempty,url"`
	PageCount       int                    `json:"page_count,omitempty" validate:"gte=0"`
	AverageRating   float64                `json:"average_rating,omitempty" validate:"gte=0,lte=5"`
	Description     string                 `json:"description,omitempty" validate:"max=20000"`
	Publisher       string                 `json:"publisher,omitempty" validate:"max=255"`
	PublicationDate domain.PublicationDate `json:"publication_date,omitempty"`
	Format          string                 `json:"format,omitempty" validate:"max=64"`
}

// hasFields reports whether the caller supplied book data of its own.
func (r *AddBookRequest) hasFields() bool {
	return r.Title != "" || r.Authors != "" || r.CoverURL != "" || r.PageCount != 0 ||
		r.AverageRating != 0 || r.Description != "" || r.Publisher != "" ||
		!r.PublicationDate.IsZero() || r.Format != ""
}

// fields returns the normalized descriptive fields.
func (r *AddBookRequest) fields() domain.BookFields {
	return domain.BookFields{
		Title:           normalize.Text(r.Title),
		Authors:         normalize.Text(r.Authors),
		CoverURL:        normalize.Text(r.CoverURL),
		PageCount:       r.PageCount,
		AverageRating:   r.AverageRating,
		Description:     normalize.Description(r.Description),
		Publisher:       normalize.Text(r.Publisher),
		PublicationDate: sanitizeDate(r.PublicationDate),
		Format:          normalize.Format(r.Format),
	}
}

// sanitizeDate drops the parts of d that cannot be a calendar date, and any
// part that follows an unknown one.
func sanitizeDate(d domain.PublicationDate) domain.PublicationDate {
	if d.Year <= 0 {
		return domain.PublicationDate{}
	}
	if d.Month < 1 || d.Month > 12 {
		return domain.PublicationDate{Year: d.Year}
	}
	if d.Day < 1 || d.Day > 31 {
		d.Day = 0
	}
	return d
}

// ProgressResult is the outcome of SaveProgress.
type ProgressResult struct {
	ExternalID string `json:"external_id"`
	ReadPages  int    `json:"read_pages"`
}

// ReadPagesPolicy decides what happens to progress beyond a book's page count.
type ReadPagesPolicy string

const (
	// ReadPagesClamp stores the page count instead of the larger value.
	ReadPagesClamp ReadPagesPolicy = "clamp"
	// ReadPagesReject fails the request with a validation error.
	ReadPagesReject ReadPagesPolicy = "reject"
)
