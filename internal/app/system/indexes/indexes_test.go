package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/giftcircle/internal/app/system/indexes"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, c *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	// Second call should also succeed (idempotent)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		collection string
		expected   []string
	}{
		{"events", []string{"idx_events_organizer_created", "idx_events_bound_identities_created"}},
		{"profiles", []string{"idx_profiles_owner_nameci", "idx_profiles_managers_nameci"}},
		{"accounts", []string{"idx_accounts_email"}},
		{"wishlists", []string{"idx_wishlists_owner_created"}},
		{"audit_events", []string{
			"idx_audit_timestamp",
			"idx_audit_event_timestamp",
			"idx_audit_actor_timestamp",
			"idx_audit_category_type_timestamp",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			names := indexNames(t, ctx, db.Collection(tt.collection))
			for _, name := range tt.expected {
				if !names[name] {
					t.Errorf("expected index %q to exist on %s collection", name, tt.collection)
				}
			}
		})
	}
}

func TestEnsureAll_RenamesIndexWithSameKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("accounts")
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_1_legacy"),
	})
	if err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, ctx, c)
	if names["email_1_legacy"] {
		t.Error("legacy index name should have been replaced")
	}
	if !names["idx_accounts_email"] {
		t.Error("expected idx_accounts_email after rename")
	}
}
