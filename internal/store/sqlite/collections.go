package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// CreateCollection provisions an empty collection for accountID.
// Provisioning an existing account returns its collection with created=false.
func (s *Store) CreateCollection(ctx context.Context, accountID string) (*domain.Collection, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (account_id, created_at) VALUES (?, ?)
		ON CONFLICT(account_id) DO NOTHING`,
		accountID, formatTime(time.Now()))
	if err != nil {
		return nil, false, fmt.Errorf("insert collection %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	coll, err := s.GetCollection(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	return coll, n == 1, nil
}

// GetCollection loads the collection with its entries in insertion order.
// Returns store.ErrCollectionNotFound if the account was never provisioned.
func (s *Store) GetCollection(ctx context.Context, accountID string) (*domain.Collection, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM collections WHERE account_id = ?`, accountID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}

	coll := &domain.Collection{
		AccountID: accountID,
		Entries:   []domain.CollectionEntry{},
		Liked:     []string{},
	}
	if coll.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, read_pages, added_at FROM collection_entries
		WHERE account_id = ?
		ORDER BY added_at, seq`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		coll.Entries = append(coll.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	likeRows, err := s.db.QueryContext(ctx, `
		SELECT book_id FROM collection_likes
		WHERE account_id = ?
		ORDER BY liked_at, book_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer likeRows.Close()
	for likeRows.Next() {
		var bookID string
		if err := likeRows.Scan(&bookID); err != nil {
			return nil, err
		}
		coll.Liked = append(coll.Liked, bookID)
	}
	return coll, likeRows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (domain.CollectionEntry, error) {
	var (
		e       domain.CollectionEntry
		addedAt string
	)
	if err := scanner.Scan(&e.BookID, &e.ReadPages, &addedAt); err != nil {
		return e, err
	}
	t, err := parseTime(addedAt)
	if err != nil {
		return e, err
	}
	e.AddedAt = t
	return e, nil
}

// AddMembership inserts a collection entry. A zero AddedAt is stamped with now.
func (s *Store) AddMembership(ctx context.Context, accountID string, entry domain.CollectionEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_entries (account_id, book_id, read_pages, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, book_id) DO NOTHING`,
		accountID, entry.BookID, entry.ReadPages, formatTime(entry.AddedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return s.missingParent(ctx, accountID)
		}
		return fmt.Errorf("insert entry %s/%s: %w", accountID, entry.BookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyMember
	}
	return nil
}

// RemoveMembership deletes the entry and returns its previous state.
func (s *Store) RemoveMembership(ctx context.Context, accountID, bookID string) (domain.CollectionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM collection_entries
		WHERE account_id = ? AND book_id = ?
		RETURNING book_id, read_pages, added_at`,
		accountID, bookID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CollectionEntry{}, s.notMember(ctx, accountID)
	}
	if err != nil {
		return domain.CollectionEntry{}, fmt.Errorf("delete entry %s/%s: %w", accountID, bookID, err)
	}
	return entry, nil
}

// GetEntry returns the entry for bookID in the account's collection.
func (s *Store) GetEntry(ctx context.Context, accountID, bookID string) (domain.CollectionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT book_id, read_pages, added_at FROM collection_entries
		WHERE account_id = ? AND book_id = ?`,
		accountID, bookID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CollectionEntry{}, s.notMember(ctx, accountID)
	}
	return entry, err
}

// SetReadPages overwrites the read page count of an existing entry.
func (s *Store) SetReadPages(ctx context.Context, accountID, bookID string, readPages int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collection_entries SET read_pages = ?
		WHERE account_id = ? AND book_id = ?`,
		readPages, accountID, bookID)
	if err != nil {
		return fmt.Errorf("update read pages %s/%s: %w", accountID, bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.notMember(ctx, accountID)
	}
	return nil
}

// AddLike records that the account likes bookID.
func (s *Store) AddLike(ctx context.Context, accountID, bookID string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_likes (account_id, book_id, liked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id, book_id) DO NOTHING`,
		accountID, bookID, formatTime(time.Now()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return s.missingParent(ctx, accountID)
		}
		return fmt.Errorf("insert like %s/%s: %w", accountID, bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyLiked
	}
	return nil
}

// RemoveLike deletes the like row.
func (s *Store) RemoveLike(ctx context.Context, accountID, bookID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_likes WHERE account_id = ? AND book_id = ?`,
		accountID, bookID)
	if err != nil {
		return fmt.Errorf("delete like %s/%s: %w", accountID, bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := s.collectionExists(ctx, accountID); err != nil {
			return err
		}
		return store.ErrNotLiked
	}
	return nil
}

// IsLiked reports whether the account likes bookID.
func (s *Store) IsLiked(ctx context.Context, accountID, bookID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM collection_likes WHERE account_id = ? AND book_id = ?`,
		accountID, bookID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) collectionExists(ctx context.Context, accountID string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM collections WHERE account_id = ?`, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrCollectionNotFound
	}
	return err
}

// missingParent decides which side of a failed foreign key is absent.
func (s *Store) missingParent(ctx context.Context, accountID string) error {
	if err := s.collectionExists(ctx, accountID); err != nil {
		return err
	}
	return store.ErrBookNotFound
}

func (s *Store) notMember(ctx context.Context, accountID string) error {
	if err := s.collectionExists(ctx, accountID); err != nil {
		return err
	}
	return store.ErrNotMember
}
