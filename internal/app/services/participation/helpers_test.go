package participation_test

import (
	"testing"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	"github.com/dalemusser/giftcircle/internal/app/system/invitelink"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testInviteKey = "0123456789abcdef0123456789abcdef"

func account(id primitive.ObjectID) models.EffectiveIdentity {
	return models.EffectiveIdentity{Kind: models.IdentityAccount, ID: id, AccountID: id}
}

func newAccount() models.EffectiveIdentity {
	return account(primitive.NewObjectID())
}

type env struct {
	db        *mongo.Database
	fx        *testutil.Fixtures
	svc       *participation.Service
	invites   *invitelink.Signer
	organizer models.EffectiveIdentity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	signer, err := invitelink.NewSigner(testInviteKey, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return &env{
		db:        db,
		fx:        testutil.NewFixtures(t, db),
		svc:       participation.New(participation.Deps{DB: db, Invites: signer, Log: zap.NewNop()}),
		invites:   signer,
		organizer: newAccount(),
	}
}
