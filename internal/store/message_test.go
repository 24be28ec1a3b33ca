package store

import (
	"context"
	"testing"
)

func setupMessageTestDB(t *testing.T) *MessageStore {
	t.Helper()
	return NewMessageStore(setupTestDB(t))
}

func TestMessageCreate(t *testing.T) {
	ms := setupMessageTestDB(t)

	m, err := ms.Create(context.Background(), "Ann", "ann@example.com", "Hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if m.Read {
		t.Error("expected new message to be unread")
	}
	if m.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMessageListNewestFirst(t *testing.T) {
	ms := setupMessageTestDB(t)
	ctx := context.Background()

	ms.Create(ctx, "Ann", "ann@example.com", "first")
	ms.Create(ctx, "Ben", "ben@example.com", "second")

	msgs, err := ms.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Message != "second" {
		t.Errorf("msgs[0] = %q, want %q", msgs[0].Message, "second")
	}
}

func TestMessageMarkReadAndCounts(t *testing.T) {
	ms := setupMessageTestDB(t)
	ctx := context.Background()

	a, _ := ms.Create(ctx, "Ann", "ann@example.com", "first")
	ms.Create(ctx, "Ben", "ben@example.com", "second")

	if err := ms.MarkRead(ctx, a.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	c, err := ms.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Total != 2 || c.Unread != 1 {
		t.Errorf("counts = %+v, want total 2 unread 1", c)
	}
}

func TestMessageCountsEmpty(t *testing.T) {
	ms := setupMessageTestDB(t)

	c, err := ms.Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Total != 0 || c.Unread != 0 {
		t.Errorf("counts = %+v, want zero", c)
	}
}

func TestMessageDelete(t *testing.T) {
	ms := setupMessageTestDB(t)
	ctx := context.Background()

	m, _ := ms.Create(ctx, "Ann", "ann@example.com", "first")
	if err := ms.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ms.GetByID(ctx, m.ID); got != nil {
		t.Error("expected nil after delete")
	}
}
