package goodreads

// Raw API response types (internal). Every leaf is a string so that empty or
// garbled values reach normalization instead of failing the decode.

type searchResponse struct {
	Search struct {
		Query            string    `xml:"query"`
		ResultsStart     string    `xml:"results-start"`
		ResultsEnd       string    `xml:"results-end"`
		TotalResults     string    `xml:"total-results"`
		QueryTimeSeconds string    `xml:"query-time-seconds"`
		Works            []rawWork `xml:"results>work"`
	} `xml:"search"`
}

type rawWork struct {
	AverageRating string  `xml:"average_rating"`
	BestBook      rawBest `xml:"best_book"`
}

type rawBest struct {
	ID            string    `xml:"id"`
	Title         string    `xml:"title"`
	Author        rawAuthor `xml:"author"`
	ImageURL      string    `xml:"image_url"`
	SmallImageURL string    `xml:"small_image_url"`
}

type rawAuthor struct {
	Name string `xml:"name"`
	Role string `xml:"role"`
}

type bookResponse struct {
	Book *rawBook `xml:"book"`
}

type rawBook struct {
	ID               string      `xml:"id"`
	Title            string      `xml:"title"`
	ImageURL         string      `xml:"image_url"`
	SmallImageURL    string      `xml:"small_image_url"`
	Description      string      `xml:"description"`
	NumPages         string      `xml:"num_pages"`
	Format           string      `xml:"format"`
	Publisher        string      `xml:"publisher"`
	PublicationYear  string      `xml:"publication_year"`
	PublicationMonth string      `xml:"publication_month"`
	PublicationDay   string      `xml:"publication_day"`
	AverageRating    string      `xml:"average_rating"`
	Authors          []rawAuthor `xml:"authors>author"`
}

// empty reports whether the catalog answered with a book element carrying
// nothing usable, which it does for unknown ids.
func (b *rawBook) empty() bool {
	return b == nil || (b.ID == "" && b.Title == "")
}
