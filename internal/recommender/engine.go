package recommender

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/shoplinehq/shopline-backend/internal/catalog"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

// DefaultMaxResults caps a suggestion list when the caller does not.
const DefaultMaxResults = 6

const (
	productKeyPattern = "shop:product:%d:purchased_with"
	tmpKeyPrefix      = "shop:tmp:"
)

// ScoreStore is the sorted-set surface the engine needs. The shared redis
// client satisfies it; tests substitute an in-memory fake.
type ScoreStore interface {
	ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error)
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZUnionStore(ctx context.Context, dest string, keys ...string) (int64, error)
	ZRem(ctx context.Context, key string, members ...any) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// Engine maintains per-product co-purchase scores in the scoring store and
// turns them into ranked product suggestions. All persistent state lives in
// the store under deterministic per-product keys; the engine itself holds
// none.
type Engine struct {
	store   ScoreStore
	catalog catalog.Service
}

// NewEngine wires the engine to its scoring store and catalog.
func NewEngine(store ScoreStore, catalogSvc catalog.Service) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("score store required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &Engine{store: store, catalog: catalogSvc}, nil
}

// RecordPurchase bumps the co-purchase score of every ordered pair of
// distinct products from one completed order, both directions, never a
// product against itself. Each increment is an independent atomic store
// operation; a failure mid-sequence leaves the earlier increments in place.
func (e *Engine) RecordPurchase(ctx context.Context, productIDs []int64) error {
	if e == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "recommender not configured")
	}
	for _, a := range productIDs {
		for _, b := range productIDs {
			if a == b {
				continue
			}
			_, err := e.store.ZIncrBy(ctx, productKey(a), 1, strconv.FormatInt(b, 10))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording co-purchase score")
			}
		}
	}
	return nil
}

// Suggest returns up to maxResults products ranked by descending accumulated
// co-purchase score against the seed products. With a single seed the seed's
// own set is read directly; its key never contains the seed itself, so no
// filtering is needed. With multiple seeds the sets are union-merged with
// summed scores into a transient key, the seeds are explicitly removed from
// the merge, and the key is deleted before returning whatever the outcome.
func (e *Engine) Suggest(ctx context.Context, productIDs []int64, maxResults int) ([]models.Product, error) {
	// A nil engine still satisfies the callers' suggester interfaces; treat
	// it as "no suggestions" rather than dereferencing.
	if e == nil || len(productIDs) == 0 {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var (
		ranked []string
		err    error
	)
	if len(productIDs) == 1 {
		ranked, err = e.store.ZRevRange(ctx, productKey(productIDs[0]), 0, int64(maxResults-1))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading co-purchase scores")
		}
	} else {
		ranked, err = e.mergeSuggestions(ctx, productIDs, maxResults)
		if err != nil {
			return nil, err
		}
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	rank := make(map[int64]int, len(ranked))
	ids := make([]int64, 0, len(ranked))
	for i, member := range ranked {
		id, parseErr := strconv.ParseInt(member, 10, 64)
		if parseErr != nil {
			continue
		}
		rank[id] = i
		ids = append(ids, id)
	}

	products, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// The catalog fetch does not preserve rank order; re-sort by the
	// score-derived index.
	sortByRank(products, rank)
	return products, nil
}

func (e *Engine) mergeSuggestions(ctx context.Context, productIDs []int64, maxResults int) ([]string, error) {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productKey(id)
	}
	tmp := tmpKey(productIDs)
	defer func() {
		// Scoped to this call: the transient merge key always goes away,
		// error path included.
		_ = e.store.Del(context.WithoutCancel(ctx), tmp)
	}()

	if _, err := e.store.ZUnionStore(ctx, tmp, keys...); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merging co-purchase scores")
	}
	seeds := make([]any, len(productIDs))
	for i, id := range productIDs {
		seeds[i] = strconv.FormatInt(id, 10)
	}
	if _, err := e.store.ZRem(ctx, tmp, seeds...); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing seeds from merge")
	}
	ranked, err := e.store.ZRevRange(ctx, tmp, 0, int64(maxResults-1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading merged scores")
	}
	return ranked, nil
}

// ClearAll deletes every product's score set. Maintenance only; failures on
// individual keys are collected so one bad key does not mask the rest.
func (e *Engine) ClearAll(ctx context.Context) error {
	if e == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "recommender not configured")
	}
	ids, err := e.catalog.AllProductIDs(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, id := range ids {
		if err := e.store.Del(ctx, productKey(id)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clearing scores for product %d: %w", id, err))
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "clearing co-purchase scores")
	}
	return nil
}

func productKey(id int64) string {
	return fmt.Sprintf(productKeyPattern, id)
}

// tmpKey derives the transient merge key from the seed ids. Two concurrent
// calls with the same seed set share the key; that race is accepted, the
// blast radius is one momentarily wrong suggestion list.
func tmpKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return tmpKeyPrefix + strings.Join(parts, "-")
}

func sortByRank(products []models.Product, rank map[int64]int) {
	sort.Slice(products, func(i, j int) bool {
		return rank[products[i].ID] < rank[products[j].ID]
	})
}
