package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/id"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, external_id, title, authors, cover_url, page_count,
	average_rating, description, publisher, pub_year, pub_month, pub_day,
	format, reference_count, like_count, created_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b         domain.Book
		coverURL  sql.NullString
		desc      sql.NullString
		publisher sql.NullString
		format    sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.ExternalID,
		&b.Title,
		&b.Authors,
		&coverURL,
		&b.PageCount,
		&b.AverageRating,
		&desc,
		&publisher,
		&b.PublicationDate.Year,
		&b.PublicationDate.Month,
		&b.PublicationDate.Day,
		&format,
		&b.ReferenceCount,
		&b.LikeCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.CoverURL = coverURL.String
	b.Description = desc.String
	b.Publisher = publisher.String
	b.Format = format.String

	return &b, nil
}

// FindOrCreate inserts the book unless a row with the same external id
// exists, then reads back whichever row won.
func (s *Store) FindOrCreate(ctx context.Context, externalID string, fields domain.BookFields) (*domain.Book, bool, error) {
	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, external_id, title, authors, cover_url, page_count,
			average_rating, description, publisher, pub_year, pub_month, pub_day,
			format, reference_count, like_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)
		ON CONFLICT(external_id) DO NOTHING`,
		bookID,
		externalID,
		fields.Title,
		fields.Authors,
		nullString(fields.CoverURL),
		fields.PageCount,
		fields.AverageRating,
		nullString(fields.Description),
		nullString(fields.Publisher),
		fields.PublicationDate.Year,
		fields.PublicationDate.Month,
		fields.PublicationDate.Day,
		nullString(fields.Format),
		formatTime(time.Now()),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert book %s: %w", externalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	created := n == 1

	// A concurrent delete can remove the winner between the insert and this
	// read; callers see ErrBookNotFound and may retry.
	book, err := s.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.indexBook(ctx, book)
		s.logger.Debug("book cached", "book_id", book.ID, "external_id", externalID)
	}
	return book, created, nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrBookNotFound if it does not exist.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, bookID)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	return b, err
}

// FindByExternalID retrieves a book by its catalog id.
// Returns store.ErrBookNotFound if it is not cached.
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE external_id = ?`, externalID)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	return b, err
}

// GetBooksByIDs retrieves the books that exist among ids, in cache order.
// Missing ids are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return []*domain.Book{}, nil
	}
	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}
	return s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`) ORDER BY seq`,
		args...)
}

// ListBooks returns every cached book in cache order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY seq`)
}

// IncrementReference applies delta to reference_count in one statement.
func (s *Store) IncrementReference(ctx context.Context, bookID string, delta int) error {
	return s.adjustCounter(ctx, "reference_count", bookID, delta)
}

// IncrementLike applies delta to like_count in one statement.
func (s *Store) IncrementLike(ctx context.Context, bookID string, delta int) error {
	return s.adjustCounter(ctx, "like_count", bookID, delta)
}

// adjustCounter updates column by delta, refusing to go below zero. column is
// one of the two fixed counter names, never caller input.
func (s *Store) adjustCounter(ctx context.Context, column, bookID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET `+column+` = `+column+` + ? WHERE id = ? AND `+column+` + ? >= 0`,
		delta, bookID, delta)
	if err != nil {
		return fmt.Errorf("adjust %s for %s: %w", column, bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrBookNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrCounterUnderflow
}

// deletableClause matches books no collection holds or likes. The NOT EXISTS
// checks keep a book whose membership row landed before its counter update.
const deletableClause = `reference_count = 0 AND like_count = 0
	AND NOT EXISTS (SELECT 1 FROM collection_entries e WHERE e.book_id = books.id)
	AND NOT EXISTS (SELECT 1 FROM collection_likes l WHERE l.book_id = books.id)`

// DeleteIfUnreferenced deletes the book when nothing references it.
func (s *Store) DeleteIfUnreferenced(ctx context.Context, bookID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ? AND `+deletableClause, bookID)
	if err != nil {
		return false, fmt.Errorf("delete book %s: %w", bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.unindexBook(ctx, bookID)
	s.logger.Debug("book evicted", "book_id", bookID)
	return true, nil
}

// ListUnreferenced returns up to limit deletable books created before olderThan.
func (s *Store) ListUnreferenced(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM books
		WHERE created_at < ? AND `+deletableClause+`
		ORDER BY seq LIMIT ?`,
		formatTime(olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("list unreferenced books: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var bookID string
		if err := rows.Scan(&bookID); err != nil {
			return nil, err
		}
		ids = append(ids, bookID)
	}
	return ids, rows.Err()
}

// TopByLikeCount returns the most liked books.
func (s *Store) TopByLikeCount(ctx context.Context, n int) ([]*domain.Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE like_count > 0
		ORDER BY like_count DESC, seq ASC
		LIMIT ?`, n)
}

// TopByReferenceCount returns the books held by the most collections.
func (s *Store) TopByReferenceCount(ctx context.Context, n int) ([]*domain.Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE reference_count > 0
		ORDER BY reference_count DESC, seq ASC
		LIMIT ?`, n)
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
