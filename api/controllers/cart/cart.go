package cart

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoplinehq/shopline-backend/api/middleware"
	"github.com/shoplinehq/shopline-backend/api/responses"
	"github.com/shoplinehq/shopline-backend/api/validators"
	cartsvc "github.com/shoplinehq/shopline-backend/internal/cart"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
)

const maxCartRecommendations = 4

type suggester interface {
	Suggest(ctx context.Context, productIDs []int64, maxResults int) ([]models.Product, error)
}

type cartItemResponse struct {
	Product   models.Product `json:"product"`
	Quantity  int            `json:"quantity"`
	UnitPrice string         `json:"unit_price"`
	LineTotal string         `json:"line_total"`
}

type cartResponse struct {
	Items           []cartItemResponse `json:"items"`
	ItemCount       int                `json:"item_count"`
	Subtotal        string             `json:"subtotal"`
	Discount        string             `json:"discount"`
	Total           string             `json:"total"`
	Coupon          *couponResponse    `json:"coupon,omitempty"`
	Recommendations []models.Product   `json:"recommendations,omitempty"`
}

type couponResponse struct {
	Code     string `json:"code"`
	Discount int    `json:"discount"`
}

func buildCartResponse(ctx context.Context, svc cartsvc.Service, sessionID string, c *cartsvc.Cart, rec suggester) (*cartResponse, error) {
	items, err := svc.Items(ctx, sessionID, c)
	if err != nil {
		return nil, err
	}
	coupon, err := svc.Coupon(ctx, c)
	if err != nil {
		return nil, err
	}
	discount, err := svc.Discount(ctx, c)
	if err != nil {
		return nil, err
	}
	total, err := svc.TotalAfterDiscount(ctx, c)
	if err != nil {
		return nil, err
	}

	resp := &cartResponse{
		Items:     make([]cartItemResponse, 0, len(items)),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal().StringFixed(2),
		Discount:  discount.StringFixed(2),
		Total:     total.StringFixed(2),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, cartItemResponse{
			Product:   item.Product,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	if coupon != nil {
		resp.Coupon = &couponResponse{Code: coupon.Code, Discount: coupon.Discount}
	}

	if rec != nil && len(c.ProductIDs()) > 0 {
		suggestions, err := rec.Suggest(ctx, c.ProductIDs(), maxCartRecommendations)
		if err == nil {
			resp.Recommendations = suggestions
		}
	}
	return resp, nil
}

// FetchCart returns the reconciled session cart with totals and "bought
// together" suggestions seeded by the cart's contents.
func FetchCart(svc cartsvc.Service, rec suggester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		c, err := svc.Load(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := buildCartResponse(ctx, svc, sessionID, c, rec)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
	Override  bool  `json:"override"`
}

// AddItem puts a product in the session cart, accumulating or overriding the
// quantity.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		c, err := svc.AddItem(ctx, sessionID, payload.ProductID, payload.Quantity, payload.Override)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := buildCartResponse(ctx, svc, sessionID, c, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// RemoveItem drops a product's line from the session cart.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		c, err := svc.RemoveItem(ctx, sessionID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := buildCartResponse(ctx, svc, sessionID, c, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ClearCart destroys the whole session cart.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		if err := svc.Clear(ctx, sessionID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCoupon attaches a coupon code to the session cart.
func ApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		c, _, err := svc.ApplyCoupon(ctx, sessionID, payload.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := buildCartResponse(ctx, svc, sessionID, c, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// RemoveCoupon detaches the applied coupon from the session cart.
func RemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		c, err := svc.RemoveCoupon(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := buildCartResponse(ctx, svc, sessionID, c, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
