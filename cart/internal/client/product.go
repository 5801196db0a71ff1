package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/obarbosa/mercadinho/cart/internal/otel"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	"github.com/obarbosa/mercadinho/internal/log"
	inOtel "github.com/obarbosa/mercadinho/internal/otel"
	"github.com/obarbosa/mercadinho/product/pkg/response"
)

const productCacheTTL = time.Hour

// ProductClient resolves product ids against the product service. Resolved
// products are cached in redis with a TTL; the cache is best effort and a
// cache failure never fails the lookup.
type ProductClient struct {
	baseUrl string
	cache   *redis.Client
}

func NewProductClient(baseUrl string, cache *redis.Client) *ProductClient {
	return &ProductClient{baseUrl: baseUrl, cache: cache}
}

type productEnvelope struct {
	Data struct {
		Product response.Product `json:"product"`
	} `json:"data"`
}

func (p *ProductClient) FindProductById(
	c context.Context,
	id uuid.UUID,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductClient FindProductById")
	defer span.End()

	cacheKey := "products:" + id.String()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductClient FindProductById").
		Str(log.KeyProductID, id.String()).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	jsonString, err := p.cache.Get(c, cacheKey).Result()
	if err == nil {
		product := response.Product{}
		if err = json.Unmarshal([]byte(jsonString), &product); err == nil {
			logger.Info().Msg("found product in cache")
			return product, nil
		}
		logger.Info().Err(err).Msg("failed unmarshaling cached product")
	}

	logger = logger.With().Str(log.KeyProcess, "finding product in product-service").Logger()
	logger.Info().Msgf("finding productId=%s in product-service", id.String())
	req, err := http.NewRequestWithContext(
		c,
		http.MethodGet,
		p.baseUrl+"/"+id.String(),
		nil,
	)
	if err != nil {
		err = fmt.Errorf("failed creating request for productId=%s with error=%w", id.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	req.Header.Add(log.HeaderRequestID, log.RequestIDFromContext(c))
	resp, err := otelhttp.DefaultClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed getting productId=%s with error=%w", id.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		err = fmt.Errorf("productId=%s with error=%w", id.String(), inErrors.ErrProductNotFound)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf(
			"product-service returned status code=%d for productId=%s",
			resp.StatusCode,
			id.String(),
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "decoding product").Logger()
	envelope := productEnvelope{}
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		err = fmt.Errorf("failed decoding productId=%s with error=%w", id.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	product := envelope.Data.Product
	logger = logger.With().Any(log.KeyProduct, product).Logger()
	logger.Info().Msg("found product in product-service")

	logger = logger.With().Str(log.KeyProcess, "inserting product to cache").Logger()
	logger.Trace().Msg("inserting product to cache")
	cached, err := json.Marshal(product)
	if err == nil {
		err = p.cache.Set(c, cacheKey, cached, productCacheTTL).Err()
	}
	if err != nil {
		err = fmt.Errorf("failed inserting product to cache with error=%w", err)
		logger.Info().Err(err).Msg(err.Error())
	} else {
		logger.Info().Msg("inserted product to cache")
	}

	return product, nil
}
