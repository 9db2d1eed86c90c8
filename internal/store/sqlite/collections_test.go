package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/store"
)

func TestCreateCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	coll, created, err := s.CreateCollection(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if !created || coll.AccountID != "acc-1" || len(coll.Entries) != 0 || len(coll.Liked) != 0 {
		t.Errorf("unexpected collection: created=%v %+v", created, coll)
	}

	again, created, err := s.CreateCollection(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CreateCollection again: %v", err)
	}
	if created {
		t.Error("expected existing collection")
	}
	if !again.CreatedAt.Equal(coll.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", again.CreatedAt, coll.CreatedAt)
	}

	if _, err := s.GetCollection(ctx, "acc-missing"); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, _ = s.CreateCollection(ctx, "acc-1")
	a, _, _ := s.FindOrCreate(ctx, "g1", testFields("A"))
	b, _, _ := s.FindOrCreate(ctx, "g2", testFields("B"))

	if err := s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: a.ID, ReadPages: 5}); err != nil {
		t.Fatalf("AddMembership a: %v", err)
	}
	if err := s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: b.ID}); err != nil {
		t.Fatalf("AddMembership b: %v", err)
	}
	if err := s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: a.ID}); !errors.Is(err, store.ErrAlreadyMember) {
		t.Errorf("expected ErrAlreadyMember, got %v", err)
	}

	coll, err := s.GetCollection(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if len(coll.Entries) != 2 || coll.Entries[0].BookID != a.ID || coll.Entries[1].BookID != b.ID {
		t.Fatalf("unexpected entries: %+v", coll.Entries)
	}
	if coll.Entries[0].ReadPages != 5 {
		t.Errorf("read pages = %d, want 5", coll.Entries[0].ReadPages)
	}

	if err := s.SetReadPages(ctx, "acc-1", b.ID, 42); err != nil {
		t.Fatalf("SetReadPages: %v", err)
	}
	entry, err := s.GetEntry(ctx, "acc-1", b.ID)
	if err != nil || entry.ReadPages != 42 {
		t.Errorf("GetEntry = %+v, %v", entry, err)
	}

	removed, err := s.RemoveMembership(ctx, "acc-1", a.ID)
	if err != nil {
		t.Fatalf("RemoveMembership: %v", err)
	}
	if removed.BookID != a.ID || removed.ReadPages != 5 {
		t.Errorf("removed entry = %+v", removed)
	}
	if _, err := s.RemoveMembership(ctx, "acc-1", a.ID); !errors.Is(err, store.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
	if err := s.SetReadPages(ctx, "acc-1", a.ID, 1); !errors.Is(err, store.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestMembership_RestoreKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, _ = s.CreateCollection(ctx, "acc-1")
	a, _, _ := s.FindOrCreate(ctx, "g1", testFields("A"))
	b, _, _ := s.FindOrCreate(ctx, "g2", testFields("B"))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: a.ID, ReadPages: 7, AddedAt: base})
	_ = s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: b.ID, AddedAt: base.Add(time.Hour)})

	removed, err := s.RemoveMembership(ctx, "acc-1", a.ID)
	if err != nil {
		t.Fatalf("RemoveMembership: %v", err)
	}
	if err := s.AddMembership(ctx, "acc-1", removed); err != nil {
		t.Fatalf("restore: %v", err)
	}

	coll, _ := s.GetCollection(ctx, "acc-1")
	if len(coll.Entries) != 2 || coll.Entries[0].BookID != a.ID || coll.Entries[0].ReadPages != 7 {
		t.Errorf("restored entries = %+v", coll.Entries)
	}
}

func TestMembership_MissingParents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	book, _, _ := s.FindOrCreate(ctx, "g1", testFields("A"))

	err := s.AddMembership(ctx, "acc-missing", domain.CollectionEntry{BookID: book.ID})
	if !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}

	_, _, _ = s.CreateCollection(ctx, "acc-1")
	err = s.AddMembership(ctx, "acc-1", domain.CollectionEntry{BookID: "book-missing"})
	if !errors.Is(err, store.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
	if err := s.AddLike(ctx, "acc-1", "book-missing"); !errors.Is(err, store.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound for like, got %v", err)
	}
	if _, err := s.GetEntry(ctx, "acc-missing", book.ID); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestLikes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, _ = s.CreateCollection(ctx, "acc-1")
	book, _, _ := s.FindOrCreate(ctx, "g1", testFields("A"))

	if err := s.AddLike(ctx, "acc-1", book.ID); err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if err := s.AddLike(ctx, "acc-1", book.ID); !errors.Is(err, store.ErrAlreadyLiked) {
		t.Errorf("expected ErrAlreadyLiked, got %v", err)
	}

	liked, err := s.IsLiked(ctx, "acc-1", book.ID)
	if err != nil || !liked {
		t.Errorf("IsLiked = %v, %v", liked, err)
	}
	coll, _ := s.GetCollection(ctx, "acc-1")
	if !coll.IsLiked(book.ID) {
		t.Errorf("collection likes = %v", coll.Liked)
	}

	if err := s.RemoveLike(ctx, "acc-1", book.ID); err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	if err := s.RemoveLike(ctx, "acc-1", book.ID); !errors.Is(err, store.ErrNotLiked) {
		t.Errorf("expected ErrNotLiked, got %v", err)
	}
	if err := s.RemoveLike(ctx, "acc-missing", book.ID); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}

	liked, err = s.IsLiked(ctx, "acc-1", book.ID)
	if err != nil || liked {
		t.Errorf("IsLiked after removal = %v, %v", liked, err)
	}
}
