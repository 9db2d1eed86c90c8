package goodreads

import (
	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/normalize"
)

// summaryFromWork converts a search hit. Hits without a book id are dropped.
func summaryFromWork(w *rawWork) (domain.CatalogSummary, bool) {
	id := normalize.Text(w.BestBook.ID)
	if id == "" {
		return domain.CatalogSummary{}, false
	}

	return domain.CatalogSummary{
		ExternalID:    id,
		Title:         normalize.Text(w.BestBook.Title),
		Authors:       normalize.Text(w.BestBook.Author.Name),
		CoverURL:      firstNonEmpty(w.BestBook.SmallImageURL, w.BestBook.ImageURL),
		AverageRating: normalize.Float(w.AverageRating),
	}, true
}

// recordFromBook converts a full book response.
func recordFromBook(b *rawBook) *domain.CatalogRecord {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}

	return &domain.CatalogRecord{
		ExternalID: normalize.Text(b.ID),
		BookFields: domain.BookFields{
			Title:           normalize.Text(b.Title),
			Authors:         normalize.Authors(names),
			CoverURL:        firstNonEmpty(b.ImageURL, b.SmallImageURL),
			PageCount:       normalize.Int(b.NumPages),
			AverageRating:   normalize.Float(b.AverageRating),
			Description:     normalize.Description(b.Description),
			Publisher:       normalize.Text(b.Publisher),
			PublicationDate: publicationDate(b.PublicationYear, b.PublicationMonth, b.PublicationDay),
			Format:          normalize.Format(b.Format),
		},
	}
}

// publicationDate keeps each part only when it is in range; a day without a
// month is meaningless and dropped.
func publicationDate(year, month, day string) domain.PublicationDate {
	d := domain.PublicationDate{
		Year:  normalize.Int(year),
		Month: normalize.Int(month),
		Day:   normalize.Int(day),
	}
	if d.Month < 1 || d.Month > 12 {
		d.Month = 0
	}
	if d.Day < 1 || d.Day > 31 || d.Month == 0 {
		d.Day = 0
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = normalize.Text(v); v != "" {
			return v
		}
	}
	return ""
}
