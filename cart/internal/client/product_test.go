package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	"github.com/obarbosa/mercadinho/product/pkg/response"
)

func setupCache(t *testing.T) (*redis.Client, func()) {
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err = redisClient.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}

	teardown := func() {
		redisClient.Close()
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}
	return redisClient, teardown
}

func productServer(t *testing.T, products map[uuid.UUID]response.Product, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		id, err := uuid.Parse(r.URL.Path[len("/"):])
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		product, ok := products[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"product": product,
			},
		})
		require.NoError(t, err)
	}))
}

func TestFindProductById(t *testing.T) {
	cache, teardown := setupCache(t)
	defer teardown()

	product := response.Product{
		ID:    uuid.New(),
		Name:  "arroz",
		Price: decimal.RequireFromString("19.90"),
	}
	hits := atomic.Int32{}
	server := productServer(t, map[uuid.UUID]response.Product{product.ID: product}, &hits)
	defer server.Close()

	client := NewProductClient(server.URL, cache)
	found, err := client.FindProductById(context.Background(), product.ID)
	require.NoError(t, err)

	assert.Equal(t, product.ID, found.ID)
	assert.Equal(t, "arroz", found.Name)
	assert.True(t, product.Price.Equal(found.Price), "price=%s", found.Price)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFindProductByIdCacheHit(t *testing.T) {
	cache, teardown := setupCache(t)
	defer teardown()

	product := response.Product{
		ID:    uuid.New(),
		Name:  "feijao",
		Price: decimal.RequireFromString("8.50"),
	}
	hits := atomic.Int32{}
	server := productServer(t, map[uuid.UUID]response.Product{product.ID: product}, &hits)
	defer server.Close()

	client := NewProductClient(server.URL, cache)
	c := context.Background()

	_, err := client.FindProductById(c, product.ID)
	require.NoError(t, err)
	found, err := client.FindProductById(c, product.ID)
	require.NoError(t, err)

	assert.Equal(t, product.ID, found.ID)
	assert.Equal(t, int32(1), hits.Load(), "second lookup should be served from cache")

	ttl, err := cache.TTL(c, "products:"+product.ID.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestFindProductByIdNotFound(t *testing.T) {
	cache, teardown := setupCache(t)
	defer teardown()

	hits := atomic.Int32{}
	server := productServer(t, map[uuid.UUID]response.Product{}, &hits)
	defer server.Close()

	client := NewProductClient(server.URL, cache)
	_, err := client.FindProductById(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)
}
