package membership

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) *MongoRepository {
	t.Helper()
	uri := os.Getenv("MEMBERSHIP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEMBERSHIP_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("libralend_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
	})

	repo := NewMongoRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoRepository(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	m := &Member{ID: uuid.NewString(), FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", RegisteredAt: time.Now().UTC().Truncate(time.Millisecond)}
	cred, err := newCredential("analytical")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, m, cred))

	dup := *m
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Insert(ctx, &dup, cred), ErrDuplicateEmail)

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Email, got.Email)
	assert.True(t, m.RegisteredAt.Equal(got.RegisteredAt))

	exists, err := repo.Exists(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, storedCred, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, cred.Salt, storedCred.Salt)

	updated, err := repo.UpdateProfile(ctx, m.ID, Profile{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.True(t, m.RegisteredAt.Equal(updated.RegisteredAt))

	require.NoError(t, repo.Delete(ctx, m.ID))
	_, err = repo.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, m.ID), ErrMemberNotFound)
}
