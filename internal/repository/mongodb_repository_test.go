package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/products-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newProduct(title string) *domain.Product {
	return domain.NewProduct(domain.ProductFields{
		Title:       title,
		Description: "a " + title,
		Price:       12.5,
		Phone:       5551234567,
	}, time.Now())
}

func ptr[T any](v T) *T { return &v }

func TestInsert_AssignsID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p := newProduct("lamp")
	require.NoError(t, repo.Insert(ctx, p))
	assert.False(t, p.ID.IsZero())

	found, err := repo.FindOneByTitle(ctx, "lamp")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, "a lamp", found.Description)
	assert.Equal(t, 12.5, found.Price)
	assert.Equal(t, float64(5551234567), found.Phone)
	assert.True(t, p.CreatedAt.Equal(found.CreatedAt))
	assert.Equal(t, 0, found.Version)
}

func TestFindAll(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	empty, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Insert(ctx, newProduct(title)))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFindOneByTitle_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p, err := repo.FindOneByTitle(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, p)
}

func TestFindByIDAndUpdate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p := newProduct("chair")
	require.NoError(t, repo.Insert(ctx, p))

	updated, err := repo.FindByIDAndUpdate(ctx, p.ID.Hex(), domain.ProductUpdate{
		Title: ptr("stool"),
		Price: ptr(7.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "stool", updated.Title)
	assert.Equal(t, 7.0, updated.Price)
	assert.Equal(t, "a chair", updated.Description)
	// updatedAt keeps its creation value
	assert.True(t, p.UpdatedAt.Equal(updated.UpdatedAt))

	_, err = repo.FindOneByTitle(ctx, "chair")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFindByIDAndUpdate_EmptyUpdateReturnsDocument(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p := newProduct("desk")
	require.NoError(t, repo.Insert(ctx, p))

	got, err := repo.FindByIDAndUpdate(ctx, p.ID.Hex(), domain.ProductUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "desk", got.Title)
}

func TestFindByIDAndUpdate_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.FindByIDAndUpdate(context.Background(), primitive.NewObjectID().Hex(), domain.ProductUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFindByIDAndDelete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p := newProduct("sofa")
	require.NoError(t, repo.Insert(ctx, p))

	deleted, err := repo.FindByIDAndDelete(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = repo.FindByIDAndDelete(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrProductNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInvalidID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := repo.FindByIDAndUpdate(ctx, "not-an-id", domain.ProductUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = repo.FindByIDAndDelete(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.FindOneByTitle(ctx, "lamp")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		explicit string
		want     string
	}{
		{"explicit wins", "mongodb://localhost:27017/shop", "other", "other"},
		{"from uri path", "mongodb://localhost:27017/shop?retryWrites=true", "", "shop"},
		{"default", "mongodb://localhost:27017", "", DefaultDatabase},
		{"unparseable", "://", "", DefaultDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DatabaseName(tt.uri, tt.explicit))
		})
	}
}
