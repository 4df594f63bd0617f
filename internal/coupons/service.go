package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

// Service resolves coupons for cart discounting.
type Service interface {
	// ApplyByCode resolves a redeemable coupon or returns CodeNotFound.
	ApplyByCode(ctx context.Context, code string, at time.Time) (*models.Coupon, error)
	// GetValid returns the coupon when it is still redeemable at the given
	// time, and (nil, nil) when it is missing, inactive, or out of window.
	// Cart discounting treats every miss as "no coupon applied".
	GetValid(ctx context.Context, id int64, at time.Time) (*models.Coupon, error)
}

type service struct {
	repo *Repository
}

// NewService builds the coupon service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ApplyByCode(ctx context.Context, code string, at time.Time) (*models.Coupon, error) {
	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsValidAt(at) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return coupon, nil
}

func (s *service) GetValid(ctx context.Context, id int64, at time.Time) (*models.Coupon, error) {
	coupon, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsValidAt(at) {
		return nil, nil
	}
	return coupon, nil
}
