// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collection pairs a collection name with its validator; a nil schema only
// ensures the collection exists.
type collection struct {
	name   string
	schema func() bson.M
}

var collections = []collection{
	{"events", eventsSchema},
	{"accounts", accountsSchema},
	{"profiles", profilesSchema},
	{"wishlists", wishlistsSchema},
	{"audit_events", nil}, // append-only
}

// EnsureAll creates missing collections with their JSON-Schema validators
// and re-applies validators to existing ones with collMod. Servers without
// collMod or validator support (some DocumentDB versions) are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []error
	for _, c := range collections {
		var schema bson.M
		if c.schema != nil {
			schema = c.schema()
		}
		if err := ensure(ctx, db, c.name, schema, have[c.name]); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(problems...)
}

func ensure(ctx context.Context, db *mongo.Database, name string, schema bson.M, exists bool) error {
	log := zap.L().With(zap.String("collection", name))

	if !exists {
		opts := options.CreateCollection()
		if schema != nil {
			opts.SetValidator(schema).
				SetValidationLevel("moderate").
				SetValidationAction("error")
		}
		err := db.CreateCollection(ctx, name, opts)
		switch {
		case err == nil:
			log.Info("created collection", zap.Bool("validator", schema != nil))
			return nil
		case unsupported(err) && schema != nil:
			log.Info("validator skipped (unsupported)")
			return db.CreateCollection(ctx, name)
		case !namespaceExists(err):
			return err
		}
		// Lost a race with another instance; fall through to collMod.
	}
	if schema == nil {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if unsupported(err) {
			log.Info("validator skipped (unsupported)")
			return nil
		}
		return err
	}
	log.Info("validator ensured")
	return nil
}

// Server error codes: NamespaceExists, CommandNotFound, CommandNotSupported.
const (
	codeNamespaceExists     = 48
	codeCommandNotFound     = 59
	codeCommandNotSupported = 115
)

func namespaceExists(err error) bool {
	return commandErr(err, []int32{codeNamespaceExists}, "already exists", "namespace exists")
}

func unsupported(err error) bool {
	return commandErr(err, []int32{codeCommandNotFound, codeCommandNotSupported},
		"no such command", "not implemented", "not supported")
}

// commandErr matches err by server code, falling back to message text for
// deployments that report these conditions without a code.
func commandErr(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	counter  = bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0}
)

// eventsSchema guards the denormalized roster fields that the conditional
// updates in the event store depend on.
func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "organizer_id", "max_participants", "participants", "confirmed_count", "bound_identities", "roster_rev"},
			"properties": bson.M{
				"name":                      nonBlank,
				"name_ci":                   nonBlank,
				"organizer_id":              bson.M{"bsonType": "objectId"},
				"max_participants":          counter,
				"self_registration_enabled": bson.M{"bsonType": "bool"},
				"draw_enabled":              bson.M{"bsonType": "bool"},
				"completed":                 bson.M{"bsonType": "bool"},
				"participants":              bson.M{"bsonType": "object"},
				"confirmed_count":           counter,
				"bound_identities":          bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"roster_rev":                counter,
				"draw": bson.M{
					"bsonType": "object",
					"required": bson.A{"pairs", "slots", "drawn_at", "finalized"},
					"properties": bson.M{
						"pairs":     bson.M{"bsonType": "object"},
						"slots":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
						"drawn_at":  bson.M{"bsonType": "date"},
						"finalized": bson.M{"bsonType": "bool"},
					},
				},
			},
		},
	}
}

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"display_name"},
			"properties": bson.M{
				"display_name": nonBlank,
				"email":        bson.M{"bsonType": "string"},
				"is_admin":     bson.M{"bsonType": "bool"},
				"is_partner":   bson.M{"bsonType": "bool"},
			},
		},
	}
}

func profilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"display_name", "owner_id"},
			"properties": bson.M{
				"display_name":    nonBlank,
				"display_name_ci": bson.M{"bsonType": "string"},
				"owner_id":        bson.M{"bsonType": "objectId"},
				"manager_ids":     bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
				"visible":         bson.M{"bsonType": "bool"},
			},
		},
	}
}

func wishlistsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "owner_id"},
			"properties": bson.M{
				"name":     bson.M{"bsonType": "string"},
				"owner_id": bson.M{"bsonType": "objectId"},
				"items": bson.M{
					"bsonType": bson.A{"array", "null"},
					"items": bson.M{
						"bsonType": "object",
						"properties": bson.M{
							"purchased":           bson.M{"bsonType": "bool"},
							"purchased_for_event": bson.M{"bsonType": "objectId"},
						},
					},
				},
			},
		},
	}
}
