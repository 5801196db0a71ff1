package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	inErrors "github.com/obarbosa/mercadinho/internal/errors"
)

func setupStore(t *testing.T) (*PostgresCartStore, func()) {
	c := context.Background()

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
		}),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "..", "migrations", "20250812090000_create_table_carts.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}

	pgConnStr, err := pgContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	pool, err := pgxpool.New(c, pgConnStr)
	if err != nil {
		t.Fatalf("failed creating postgres pool with error: %s", err)
	}
	if err = pool.Ping(c); err != nil {
		t.Fatalf("failed ping postgres pool with error: %s", err)
	}

	teardown := func() {
		pool.Close()
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}
	return NewPostgresCartStore(pool), teardown
}

func TestSaveAndFindCart(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	c := context.Background()

	owner := uuid.New()
	productId := uuid.New()
	cart := Cart{
		UserID: owner,
		Items: []CartItem{
			{ProductID: productId, Name: "arroz", Price: decimal.RequireFromString("19.90"), Quantity: 2},
		},
		Total:     decimal.RequireFromString("39.80"),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(c, cart))

	found, err := store.FindByOwner(c, owner)
	require.NoError(t, err)

	assert.Equal(t, owner, found.UserID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, productId, found.Items[0].ProductID)
	assert.Equal(t, "arroz", found.Items[0].Name)
	assert.Equal(t, int32(2), found.Items[0].Quantity)
	assert.True(t, cart.Items[0].Price.Equal(found.Items[0].Price), "price=%s", found.Items[0].Price)
	assert.True(t, cart.Total.Equal(found.Total), "total=%s", found.Total)
}

func TestSaveUpsertsByOwner(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	c := context.Background()

	owner := uuid.New()
	cart := Cart{
		UserID:    owner,
		Items:     []CartItem{{ProductID: uuid.New(), Name: "feijao", Price: decimal.RequireFromString("8.50"), Quantity: 1}},
		Total:     decimal.RequireFromString("8.50"),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(c, cart))

	cart.Items[0].Quantity = 3
	cart.Total = decimal.RequireFromString("25.50")
	require.NoError(t, store.Save(c, cart))

	found, err := store.FindByOwner(c, owner)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int32(3), found.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(found.Total), "total=%s", found.Total)
}

func TestFindCartNotFound(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()

	_, err := store.FindByOwner(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestDeleteCartPostgres(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	c := context.Background()

	owner := uuid.New()
	require.NoError(t, store.Save(c, Cart{
		UserID:    owner,
		Items:     []CartItem{},
		Total:     decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.Delete(c, owner))

	_, err := store.FindByOwner(c, owner)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestDeleteCartNotFoundPostgres(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()

	err := store.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestListAllCartsPostgres(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	c := context.Background()

	for range 3 {
		require.NoError(t, store.Save(c, Cart{
			UserID:    uuid.New(),
			Items:     []CartItem{},
			Total:     decimal.Zero,
			UpdatedAt: time.Now().UTC(),
		}))
	}

	carts, err := store.ListAll(c)
	require.NoError(t, err)
	assert.Len(t, carts, 3)
}

func TestWithOwnerLockSerializesWriters(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	c := context.Background()

	owner := uuid.New()
	productId := uuid.New()
	require.NoError(t, store.Save(c, Cart{
		UserID:    owner,
		Items:     []CartItem{{ProductID: productId, Name: "tomate", Price: decimal.RequireFromString("2.00"), Quantity: 0}},
		Total:     decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	}))

	workers := 8
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			err := store.WithOwnerLock(c, owner, func(c context.Context, store CartStore) error {
				cart, err := store.FindByOwner(c, owner)
				if err != nil {
					return err
				}
				cart.Items[0].Quantity++
				cart.Total = decimal.RequireFromString("2.00").Mul(decimal.NewFromInt32(cart.Items[0].Quantity))
				cart.UpdatedAt = time.Now().UTC()
				return store.Save(c, cart)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := store.FindByOwner(c, owner)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int32(workers), found.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("16.00").Equal(found.Total), "total=%s", found.Total)
}
