package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/obarbosa/mercadinho/cart/internal/otel"
	"github.com/obarbosa/mercadinho/cart/internal/service"
	"github.com/obarbosa/mercadinho/cart/pkg/request"
	"github.com/obarbosa/mercadinho/internal/common"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	inHttp "github.com/obarbosa/mercadinho/internal/http"
	"github.com/obarbosa/mercadinho/internal/log"
	"github.com/obarbosa/mercadinho/internal/middleware"
	inOtel "github.com/obarbosa/mercadinho/internal/otel"
)

type CartController struct {
	service  *service.CartService
	validate *validator.Validate
}

func AttachCartController(router *mux.Router, svc *service.CartService) {
	controller := CartController{
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := router.PathPrefix("/carts").Subrouter()
	r.Use(middleware.Auth)
	r.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{productId}", controller.UpdateQuantity).Methods(http.MethodPut)
	r.HandleFunc("/items/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	r.HandleFunc("", controller.FindCart).Methods(http.MethodGet)
	r.HandleFunc("", controller.RemoveCart).Methods(http.MethodDelete)

	admin := router.PathPrefix("/admin/carts").Subrouter()
	admin.Use(middleware.Auth, middleware.Admin)
	admin.HandleFunc("", controller.ListAllCarts).Methods(http.MethodGet)
	admin.HandleFunc("/{userId}", controller.RemoveCartByOwner).Methods(http.MethodDelete)
}

func statusCodeFromError(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrProductNotFound),
		errors.Is(err, inErrors.ErrCartNotFound),
		errors.Is(err, inErrors.ErrCartItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c context.Context, w http.ResponseWriter, statusCode int, err error) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCode,
		"message":    err.Error(),
	})
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController AddItem").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	if err := t.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "getting userId from jwtToken").Logger()
	logger.Info().Msg("getting userId from jwtToken")
	userId, err := common.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()
	logger.Info().Msgf("got userId=%s", userId.String())

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	cart, err := t.service.AddItem(c, userId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("added item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully added item to cart",
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateQuantity").
		Str(log.KeyProcess, "validating productId").
		Logger()

	logger.Info().Msg("validating productId is valid uuid")
	pathValues := mux.Vars(r)
	productId, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId=%s with error=%w", pathValues["productId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, productId.String()).Logger()
	logger.Info().Msgf("valid productId=%s", productId.String())

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := request.UpdateQuantity{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	if err := t.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "getting userId from jwtToken").Logger()
	userId, err := common.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "updating quantity").Logger()
	logger.Info().Msg("updating quantity")
	c = logger.WithContext(c)
	cart, err := t.service.UpdateQuantity(c, userId, productId, reqBody.Quantity)
	if err != nil {
		err = fmt.Errorf("failed updating quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("updated quantity")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("successfully updated quantity of productId=%s", productId.String()),
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Str(log.KeyProcess, "validating productId").
		Logger()

	logger.Info().Msg("validating productId is valid uuid")
	pathValues := mux.Vars(r)
	productId, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId=%s with error=%w", pathValues["productId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, productId.String()).Logger()
	logger.Info().Msgf("valid productId=%s", productId.String())

	logger = logger.With().Str(log.KeyProcess, "getting userId from jwtToken").Logger()
	userId, err := common.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "removing item").Logger()
	logger.Info().Msg("removing item")
	c = logger.WithContext(c)
	cart, err := t.service.RemoveItem(c, userId, productId)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("removed item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("successfully removed productId=%s from cart", productId.String()),
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController FindCart").
		Str(log.KeyProcess, "getting userId from jwtToken").
		Logger()

	userId, err := common.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Info().Msg("finding cart")
	c = logger.WithContext(c)
	cart, err := t.service.FindCartByOwner(c, userId)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("found cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found cart",
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) RemoveCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveCart").
		Str(log.KeyProcess, "getting userId from jwtToken").
		Logger()

	userId, err := common.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from jwtToken with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "deleting cart").Logger()
	logger.Info().Msg("deleting cart")
	c = logger.WithContext(c)
	if err := t.service.DeleteCart(c, userId); err != nil {
		err = fmt.Errorf("failed deleting cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("deleted cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully deleted cart",
	})
}

func (t CartController) ListAllCarts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ListAllCarts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController ListAllCarts").
		Str(log.KeyProcess, "listing carts").
		Logger()

	logger.Info().Msg("listing carts")
	c = logger.WithContext(c)
	carts, err := t.service.ListAllCarts(c)
	if err != nil {
		err = fmt.Errorf("failed listing carts with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msgf("listed %d carts", len(carts))

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "listed carts",
		"data": map[string]interface{}{
			"carts": carts,
		},
	})
}

func (t CartController) RemoveCartByOwner(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveCartByOwner")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveCartByOwner").
		Str(log.KeyProcess, "validating userId").
		Logger()

	logger.Info().Msg("validating userId is valid uuid")
	pathValues := mux.Vars(r)
	owner, err := uuid.Parse(pathValues["userId"])
	if err != nil {
		err = fmt.Errorf("failed validating userId=%s with error=%w", pathValues["userId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, owner.String()).Logger()
	logger.Info().Msgf("valid userId=%s", owner.String())

	logger = logger.With().Str(log.KeyProcess, "deleting cart by owner").Logger()
	logger.Info().Msg("deleting cart by owner")
	c = logger.WithContext(c)
	if err := t.service.DeleteCart(c, owner); err != nil {
		err = fmt.Errorf("failed deleting cart of userId=%s with error=%w", owner.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, statusCodeFromError(err), err)
		return
	}
	logger.Info().Msg("deleted cart by owner")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("successfully deleted cart of userId=%s", owner.String()),
	})
}
