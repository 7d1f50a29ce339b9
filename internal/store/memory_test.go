package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMemoryDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.PutDocument(ctx, "site/data/faq", "a", json.RawMessage(`{ "question": "Q", "order": 0 }`)); err != nil {
		t.Fatalf("PutDocument() error = %v", err)
	}
	if err := m.PutDocument(ctx, "site/data/faq", "a", json.RawMessage(`{"question":"Q2","order":0}`)); err != nil {
		t.Fatalf("PutDocument() overwrite error = %v", err)
	}

	docs, err := m.ListDocuments(ctx, "site/data/faq")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 || string(docs[0].Data) != `{"question":"Q2","order":0}` {
		t.Fatalf("unexpected documents: %+v", docs)
	}

	if err := m.DeleteDocument(ctx, "site/data/faq", "a"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := m.GetDocument(ctx, "site/data/faq", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.DeleteDocument(ctx, "site/data/faq", "a"); err != nil {
		t.Fatalf("deleting a missing document should not fail: %v", err)
	}
}

func TestMemoryRejectsInvalidJSON(t *testing.T) {
	if err := NewMemory().PutDocument(context.Background(), "c", "x", json.RawMessage(`{`)); err == nil {
		t.Fatal("expected invalid JSON to be rejected")
	}
}

func TestMemoryUsersAndSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateUser(ctx, User{ID: "u1", Email: "Ops@Example.com", DisplayName: "Ops", Role: "admin"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := m.CreateUser(ctx, User{ID: "u2", Email: "ops@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	user, err := m.GetUserByEmail(ctx, " OPS@example.com ")
	if err != nil || user.ID != "u1" {
		t.Fatalf("GetUserByEmail() = %+v, %v", user, err)
	}

	if err := m.SaveRefreshSession(ctx, "hash", "u1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	if got, err := m.LookupRefreshSession(ctx, "hash"); err != nil || got.ID != "u1" {
		t.Fatalf("LookupRefreshSession() = %+v, %v", got, err)
	}
	_ = m.RevokeRefreshSession(ctx, "hash")
	if _, err := m.LookupRefreshSession(ctx, "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked session to be gone, got %v", err)
	}

	if err := m.DeactivateUser(ctx, "u1"); err != nil {
		t.Fatalf("DeactivateUser() error = %v", err)
	}
	user, _ = m.GetUserByID(ctx, "u1")
	if user.DeactivatedAt == nil {
		t.Fatal("expected user to be deactivated")
	}
}
