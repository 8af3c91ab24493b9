// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/script"
	"github.com/tomtom215/pagelist/internal/store"
)

// SortKeySeparator joins the key script result and the page key.
const SortKeySeparator = "#"

// Evaluator decides membership and position of pages in lists and applies
// the result to the ordered index.
type Evaluator struct {
	store PageStore
	site  store.Site
	cache *script.Cache
	now   func() time.Time
}

// NewEvaluator creates an evaluator. A nil cache gets a private one.
func NewEvaluator(st PageStore, site store.Site, cache *script.Cache) *Evaluator {
	if cache == nil {
		cache = script.NewCache()
	}
	return &Evaluator{store: st, site: site, cache: cache, now: time.Now}
}

// SetClock replaces the wall clock.
func (e *Evaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Cache returns the compiled script cache.
func (e *Evaluator) Cache() *script.Cache {
	return e.cache
}

// Site returns the site the evaluator works on.
func (e *Evaluator) Site() store.Site {
	return e.site
}

// Lists loads every list definition.
func (e *Evaluator) Lists(ctx context.Context) ([]ListDefinition, error) {
	return LoadLists(ctx, e.store, e.site)
}

// Env builds the script environment for page in list.
func (e *Evaluator) Env(ctx context.Context, list ListDefinition, p store.Page) (script.Env, error) {
	env := script.Env{
		Path:     p.Path,
		Page:     e.site.Key(p.Path),
		List:     list.Key,
		Title:    p.Title,
		Created:  p.Created,
		Modified: p.Modified,
	}
	types, err := e.store.Links(ctx, LinkPageType, p.Path)
	if err != nil {
		return env, fmt.Errorf("page type: %w", err)
	}
	if len(types) > 0 {
		env.Type = types[0]
	}
	return env, nil
}

// Evaluate runs the list's scripts against the page at path. A missing page
// is never included.
func (e *Evaluator) Evaluate(ctx context.Context, list ListDefinition, path string) (included bool, sortKey string, err error) {
	p, err := e.store.GetPage(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	env, err := e.Env(ctx, list, p)
	if err != nil {
		return false, "", err
	}
	compiled := e.cache.Get(list.Key, list.CheckScript, list.KeyScript)
	included, key := compiled.Evaluate(env)
	return included, key + SortKeySeparator + env.Page, nil
}

// Reconcile brings the ordered index entry of (list, page) in line with the
// scripts. It reports whether anything changed. Failures are logged and
// reported as a change so the pair is retried.
func (e *Evaluator) Reconcile(ctx context.Context, sc *SchedulerContext, list ListDefinition, path string) bool {
	path = store.CleanPath(path)
	changed, err := e.reconcile(ctx, list, path)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("list", list.Key).
			Str("path", path).
			Uint8("priority", sc.Priority()).
			Msg("List reconciliation failed, will retry")
		reconciliationsTotal.WithLabelValues("error").Inc()
		changed = true
	} else if changed {
		reconciliationsTotal.WithLabelValues("changed").Inc()
	} else {
		reconciliationsTotal.WithLabelValues("unchanged").Inc()
	}

	if changed {
		if err := e.RefreshCount(ctx, list); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("list", list.Key).Msg("Failed to update list item count")
		}
	}
	return changed
}

func (e *Evaluator) reconcile(ctx context.Context, list ListDefinition, path string) (bool, error) {
	included, newKey, err := e.Evaluate(ctx, list, path)
	if err != nil {
		return false, err
	}
	oldKey, hasOld, err := e.store.Field(ctx, store.Branch, path, list.BackRef())
	if err != nil {
		return false, err
	}

	m := store.Membership{
		List:     list.Path,
		Page:     path,
		PageKey:  e.site.Key(path),
		BackRef:  list.BackRef(),
		LinkName: LinkList,
		OldKey:   oldKey,
		NewKey:   newKey,
		Included: included,
	}

	if included {
		if hasOld && oldKey == newKey {
			exists, err := e.store.IndexEntryExists(ctx, list.Path, newKey)
			if err != nil {
				return false, err
			}
			if exists {
				return false, nil
			}
		}
	} else if !hasOld {
		return false, nil
	}

	if err := e.store.ApplyMembership(ctx, m); err != nil {
		return false, err
	}
	logging.Ctx(ctx).Debug().
		Str("list", list.Key).
		Str("path", path).
		Bool("included", included).
		Str("sort_key", newKey).
		Msg("List membership updated")
	return true, nil
}

// RefreshCount recomputes number_of_items and stamps last_updated.
func (e *Evaluator) RefreshCount(ctx context.Context, list ListDefinition) error {
	n, err := e.store.CountIndex(ctx, list.Path)
	if err != nil {
		return err
	}
	if err := e.store.SetField(ctx, store.Branch, list.Path, FieldNumberOfItems, strconv.Itoa(n)); err != nil {
		return err
	}
	listItems.WithLabelValues(list.Key).Set(float64(n))
	return e.store.SetField(ctx, store.Branch, list.Path, FieldLastUpdated,
		strconv.FormatInt(e.now().UnixMicro(), 10))
}

// Sweep reconciles every candidate of the list's selector and stamps the
// list as evaluated, even when it has no members. It stops between pages
// when ctx is done and then leaves the list unstamped.
func (e *Evaluator) Sweep(ctx context.Context, sc *SchedulerContext, list ListDefinition) (pages, changed int, err error) {
	candidates, err := list.Selector.Candidates(ctx, e.store)
	if err != nil {
		return 0, 0, fmt.Errorf("select candidates for %s: %w", list.Key, err)
	}
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return pages, changed, err
		}
		if e.Reconcile(ctx, sc, list, p) {
			changed++
		}
		pages++
	}
	return pages, changed, e.RefreshCount(ctx, list)
}
