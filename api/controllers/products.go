package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoplinehq/shopline-backend/api/responses"
	"github.com/shoplinehq/shopline-backend/internal/catalog"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
)

const maxDetailRecommendations = 4

type suggester interface {
	Suggest(ctx context.Context, productIDs []int64, maxResults int) ([]models.Product, error)
}

// ListProducts returns the available catalog, optionally filtered by
// category slug.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categorySlug := strings.TrimSpace(r.URL.Query().Get("category"))
		products, err := svc.ListProducts(ctx, categorySlug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

type productDetailResponse struct {
	Product         models.Product   `json:"product"`
	Recommendations []models.Product `json:"recommendations,omitempty"`
}

// GetProduct returns one available product with its "bought together"
// suggestions. A scoring-store failure degrades to an empty suggestion list;
// the product page still renders.
func GetProduct(svc catalog.Service, rec suggester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := productDetailResponse{Product: *product}
		if rec != nil {
			suggestions, err := rec.Suggest(ctx, []int64{product.ID}, maxDetailRecommendations)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "failed to load recommendations", err)
				}
			} else {
				resp.Recommendations = suggestions
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListCategories returns every catalog category.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}
