package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/daywich/internal/database"
	"github.com/dukerupert/daywich/internal/model"
)

func setupPushTestDB(t *testing.T) *PushStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db)
}

func TestCreateSubscription(t *testing.T) {
	ps := setupPushTestDB(t)
	ctx := context.Background()

	sub, err := ps.CreateSubscription(ctx, "https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Chrome Desktop")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q, want %q", sub.Endpoint, "https://push.example.com/sub1")
	}
	if sub.DeviceName != "Chrome Desktop" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Chrome Desktop")
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	ps := setupPushTestDB(t)
	ctx := context.Background()

	first, _ := ps.CreateSubscription(ctx, "https://push.example.com/sub1", "old", "old", "Phone")
	second, err := ps.CreateSubscription(ctx, "https://push.example.com/sub1", "new", "new", "Phone")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d", second.ID, first.ID)
	}
	if second.P256dhKey != "new" {
		t.Errorf("p256dh = %q, want new", second.P256dhKey)
	}

	subs, _ := ps.List(ctx)
	if len(subs) != 1 {
		t.Errorf("got %d subscriptions, want 1", len(subs))
	}
}

func TestDeleteSubscription(t *testing.T) {
	ps := setupPushTestDB(t)
	ctx := context.Background()

	sub, _ := ps.CreateSubscription(ctx, "https://push.example.com/sub1", "k", "a", "")
	ps.CreateSubscription(ctx, "https://push.example.com/sub2", "k", "a", "")

	if err := ps.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ps.DeleteSubscription(ctx, sub.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	if err := ps.DeleteByEndpoint(ctx, "https://push.example.com/sub2"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ := ps.List(ctx)
	if len(subs) != 0 {
		t.Errorf("got %d subscriptions, want 0", len(subs))
	}
}
