package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/beliefatlas/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultDebounce   = 500 * time.Millisecond
	defaultMaxResults = 50

	authErrorMessage    = "You must be signed in to search profiles."
	genericErrorMessage = "Failed to search profiles. Please try again."
)

// ListRequest carries the parameters the remote service supports.
// Search and Role are omitted when empty; Completed when nil.
type ListRequest struct {
	Page      int
	Limit     int
	Search    string
	Role      string
	Completed *bool
}

// ListResult is one page of matches plus the total count of all
// matches before client-side filtering.
type ListResult struct {
	Profiles []types.Profile
	Total    int
}

// Lister is the remote profile-listing service.
type Lister interface {
	ListProfiles(ctx context.Context, req ListRequest) (ListResult, error)
}

// TokenSource supplies the auth token required before any fetch.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// APIError is a recognized service error whose message is shown to the
// user verbatim. Anything else maps to a generic message.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// State is the controller's complete observable state. All of it is
// owned by the controller and mutated only in response to discrete
// events, so no locking is needed by callers.
type State struct {
	Filters      Filters
	Results      []types.Profile
	Total        int
	Page         int
	Loading      bool
	HasSearched  bool
	ErrorMessage string
}

// Controller drives the profile search pipeline: debounce, remote
// fetch, client-side predicate filtering, sort, accumulation, and CSV
// snapshot export.
//
// A newer search does not cancel one already in flight; when two
// responses land, the later arrival wins regardless of issue order.
type Controller struct {
	lister Lister
	tokens TokenSource
	log    *zap.SugaredLogger

	debounce   time.Duration
	maxResults int

	mu    sync.Mutex
	state State
	timer *time.Timer
}

func NewController(lister Lister, tokens TokenSource, log *zap.SugaredLogger) *Controller {
	return &Controller{
		lister:     lister,
		tokens:     tokens,
		log:        log,
		debounce:   defaultDebounce,
		maxResults: defaultMaxResults,
		state:      State{Filters: DefaultFilters()},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Results = append([]types.Profile(nil), c.state.Results...)
	return state
}

// SetQuery updates the free-text query. The fetch is debounced: only
// after the query has been stable for the debounce window does a
// search run, so fast edits coalesce into one request.
func (c *Controller) SetQuery(ctx context.Context, query string) {
	c.mu.Lock()
	c.state.Filters.Query = query
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.search(ctx, 1)
	})
	c.mu.Unlock()
}

// SetRole updates the role filter and searches immediately.
func (c *Controller) SetRole(ctx context.Context, role string) {
	c.updateAndSearch(ctx, func(f *Filters) { f.Role = role })
}

// SetCompleted updates the completion filter and searches immediately.
func (c *Controller) SetCompleted(ctx context.Context, completed string) {
	c.updateAndSearch(ctx, func(f *Filters) { f.Completed = completed })
}

// SetIdeologyAxis updates the ideology-axis filter and searches
// immediately. An empty axis clears the filter.
func (c *Controller) SetIdeologyAxis(ctx context.Context, axis string) {
	c.updateAndSearch(ctx, func(f *Filters) { f.IdeologyAxis = axis })
}

// SetPlasticityRange updates the plasticity bounds and searches
// immediately. Nil bounds clear the corresponding side.
func (c *Controller) SetPlasticityRange(ctx context.Context, min, max *float64) {
	c.updateAndSearch(ctx, func(f *Filters) {
		f.PlasticityMin = min
		f.PlasticityMax = max
	})
}

// SetSort updates the sort key/direction and searches immediately.
func (c *Controller) SetSort(ctx context.Context, sortBy, sortOrder string) {
	c.updateAndSearch(ctx, func(f *Filters) {
		f.SortBy = sortBy
		f.SortOrder = sortOrder
	})
}

// Refresh re-runs the search with the current filters.
func (c *Controller) Refresh(ctx context.Context) {
	c.cancelPending()
	c.search(ctx, 1)
}

// LoadMore fetches the next page and appends it to the materialized
// results. Only one load-more runs at a time; calls while a fetch is
// in flight are ignored.
func (c *Controller) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if c.state.Loading || !c.state.HasSearched {
		c.mu.Unlock()
		return
	}
	next := c.state.Page + 1
	c.mu.Unlock()
	c.search(ctx, next)
}

// Clear resets filters to defaults and empties all results, totals,
// and error state, regardless of what was displayed before.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
	c.state = State{Filters: DefaultFilters()}
}

// ActiveFilterCount returns the badge value for the current filters.
func (c *Controller) ActiveFilterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Filters.ActiveCount()
}

func (c *Controller) updateAndSearch(ctx context.Context, update func(*Filters)) {
	c.mu.Lock()
	update(&c.state.Filters)
	c.cancelPendingLocked()
	c.mu.Unlock()
	c.search(ctx, 1)
}

func (c *Controller) cancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
}

func (c *Controller) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) search(ctx context.Context, page int) {
	c.mu.Lock()
	filters := c.state.Filters
	c.state.Loading = true
	c.state.HasSearched = true
	c.mu.Unlock()

	token, err := c.tokens.Token(ctx)
	if err != nil || strings.TrimSpace(token) == "" {
		c.fail(authErrorMessage)
		return
	}

	req := ListRequest{
		Page:   page,
		Limit:  c.maxResults,
		Search: strings.TrimSpace(filters.Query),
	}
	if filters.Role != "" && filters.Role != RoleAll {
		req.Role = filters.Role
	}
	switch filters.Completed {
	case CompletedYes:
		completed := true
		req.Completed = &completed
	case CompletedNo:
		completed := false
		req.Completed = &completed
	}

	res, err := c.lister.ListProfiles(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.fail(apiErr.Message)
		} else {
			c.log.Warnw("profile search failed", "page", page, "error", err)
			c.fail(genericErrorMessage)
		}
		return
	}

	// Each page is filtered and sorted on its own before being
	// appended, so ordering across page boundaries is approximate.
	chunk := applyPredicates(res.Profiles, filters)
	sortProfiles(chunk, filters.SortBy, filters.SortOrder)

	c.mu.Lock()
	defer c.mu.Unlock()
	if page == 1 {
		c.state.Results = chunk
	} else {
		c.state.Results = append(c.state.Results, chunk...)
	}
	c.state.Total = res.Total
	c.state.Page = page
	c.state.Loading = false
	c.state.ErrorMessage = ""
}

// fail clears results and total so no stale data sits next to an
// error message.
func (c *Controller) fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Results = nil
	c.state.Total = 0
	c.state.Loading = false
	c.state.ErrorMessage = message
}
