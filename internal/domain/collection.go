package domain

import "time"

// CollectionEntry is one book in an account's collection.
type CollectionEntry struct {
	BookID    string    `json:"book_id"`
	ReadPages int       `json:"read_pages"`
	AddedAt   time.Time `json:"added_at"`
}

// Collection is the set of books an account tracks, plus the books it likes.
// Entries keep insertion order.
type Collection struct {
	AccountID string            `json:"account_id"`
	Entries   []CollectionEntry `json:"entries"`
	Liked     []string          `json:"liked"`
	CreatedAt time.Time         `json:"created_at"`
}

// Entry returns the entry for bookID, if present.
func (c *Collection) Entry(bookID string) (CollectionEntry, bool) {
	for _, e := range c.Entries {
		if e.BookID == bookID {
			return e, true
		}
	}
	return CollectionEntry{}, false
}

// IsLiked reports whether the account likes bookID.
func (c *Collection) IsLiked(bookID string) bool {
	for _, id := range c.Liked {
		if id == bookID {
			return true
		}
	}
	return false
}

// PagesRead sums the read pages across all entries.
func (c *Collection) PagesRead() int {
	total := 0
	for _, e := range c.Entries {
		total += e.ReadPages
	}
	return total
}

// AccountSummary describes an account's collection at a glance.
type AccountSummary struct {
	AccountID      string    `json:"account_id"`
	CollectionSize int       `json:"collection_size"`
	LikedCount     int       `json:"liked_count"`
	PagesRead      int       `json:"pages_read"`
	Since          time.Time `json:"since"`
}
