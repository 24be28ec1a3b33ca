package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		Username:  "admin",
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Username != "admin" {
		t.Errorf("Username = %q, want %q", got.Username, "admin")
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestUsername(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Username: "bob"})
	if Username(ctx) != "bob" {
		t.Errorf("Username = %q, want %q", Username(ctx), "bob")
	}
}

func TestUsernameMissing(t *testing.T) {
	if Username(context.Background()) != "" {
		t.Error("expected empty username for missing context")
	}
}
