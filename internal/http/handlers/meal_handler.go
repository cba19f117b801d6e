// Meal HTTP handlers.
//
// This file exposes the read-only REST surface for meal resources:
//   - GET /meal        (list all, ETag support)
//   - GET /meal/{id}   (fetch one by numeric id)
//
// Both routes are served by GetMeal: the router hands it the path fragment
// after the base path and the service decides what it means. Any fragment
// other than "" or "/<digits>" is a 400; trailing slashes are not redirected.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-meal-backend/internal/domain"
	"github.com/tbourn/go-meal-backend/internal/http/middleware"
	"github.com/tbourn/go-meal-backend/internal/services"
)

// MealService defines the meal lookup operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MealService interface {
	// Resolve turns a path fragment into a list or a single meal.
	Resolve(ctx context.Context, fragment string) (services.Outcome, error)
	// ListETag returns a weak ETag for the current meal list.
	ListETag(ctx context.Context) (string, error)
}

// Handlers groups the meal HTTP endpoints. It depends on an abstract service
// interface to keep transport concerns separate from business logic.
type Handlers struct {
	mealSvc MealService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(mealSvc MealService) *Handlers {
	return &Handlers{mealSvc: mealSvc}
}

// GetMeal godoc
// @ID          listMeals
// @Summary     List all meals
// @Description Returns every meal in store order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Meals
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"meals:2:2\")
//
// @Success     200  {array}  domain.Meal
// @Header      200  {string} ETag  "Weak ETag for current list"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /meal [get]
func (h *Handlers) GetMeal(c *gin.Context) {
	ctx := c.Request.Context()
	fragment := c.Param("path")

	// ETag pre-check for the list (best effort).
	if fragment == "" {
		if etag, err := h.mealSvc.ListETag(ctx); err == nil {
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				middleware.ObserveMealLookup(services.ActionListAll.String(), "not_modified")
				notModified(c)
				return
			}
		}
	}

	out, err := h.mealSvc.Resolve(ctx, fragment)
	if err != nil {
		h.failMeal(c, fragment, err)
		return
	}

	middleware.ObserveMealLookup(out.Action.String(), "ok")
	switch out.Action {
	case services.ActionGetByID:
		ok(c, http.StatusOK, out.Meal)
	default:
		meals := out.Meals
		if meals == nil {
			meals = []domain.Meal{}
		}
		ok(c, http.StatusOK, meals)
	}
}

// GetMealByID godoc
// @ID          getMeal
// @Summary     Get a meal by id
// @Description Returns the single meal with the given id. Stored records that cannot be read are reported as 404.
// @Tags        Meals
// @Produce     json
//
// @Param       id  path  integer  true  "Meal ID"  minimum(0) example(2)
//
// @Success     200  {object} domain.Meal
// @Failure     400  {object} handlers.ErrorResponse "Malformed path"
// @Failure     404  {object} handlers.ErrorResponse "Meal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /meal/{id} [get]
func (h *Handlers) GetMealByID(c *gin.Context) { h.GetMeal(c) }

// failMeal maps service errors onto the error envelope. Bodies stay generic;
// a 5xx hands its cause to fail, which logs it.
func (h *Handlers) failMeal(c *gin.Context, fragment string, err error) {
	action := services.ActionGetByID.String()
	if fragment == "" {
		action = services.ActionListAll.String()
	}

	switch {
	case errors.Is(err, services.ErrBadPath):
		middleware.ObserveMealLookup("invalid", "bad_request")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed meal path", nil)
	case errors.Is(err, services.ErrMealNotFound):
		middleware.ObserveMealLookup(action, "not_found")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "meal not found", nil)
	default:
		middleware.ObserveMealLookup(action, "error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
	}
}
