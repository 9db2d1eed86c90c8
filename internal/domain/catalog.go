package domain

// CatalogRecord is a fully normalized book from the external catalog.
type CatalogRecord struct {
	ExternalID string `json:"external_id"`
	BookFields
}

// CatalogSummary is one catalog search hit.
type CatalogSummary struct {
	ExternalID    string  `json:"external_id"`
	Title         string  `json:"title"`
	Authors       string  `json:"authors"`
	CoverURL      string  `json:"cover_url,omitempty"`
	AverageRating float64 `json:"average_rating"`
}

// CatalogSearchPage is one page of catalog search results.
type CatalogSearchPage struct {
	Query            string           `json:"query"`
	Page             int              `json:"page"`
	TotalResults     int              `json:"total_results"`
	QueryTimeSeconds float64          `json:"query_time_seconds"`
	Results          []CatalogSummary `json:"results"`
}
