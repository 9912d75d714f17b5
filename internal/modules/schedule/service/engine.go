package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"confsched/internal/modules/schedule/domain"
	scheduleout "confsched/internal/modules/schedule/port/out"
	"confsched/internal/platform/clock"
	apperrors "confsched/internal/platform/errors"
	"confsched/internal/platform/logging"
)

// Persisted layout.
const (
	KeyUserID    = "user_id"
	KeySnapshot  = "data.json"
	KeyFavorites = "favorites"
	KeyVotes     = "votes"
)

const repairConcurrency = 4

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(metrics scheduleout.Metrics) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(e *Engine) {
		if clk != nil {
			e.clock = clk
		}
	}
}

// Engine owns the cached snapshot and the user's favorites and ratings.
// All state is guarded by mu, which is never held across a remote call.
type Engine struct {
	store   scheduleout.Store
	remote  scheduleout.Remote
	sink    scheduleout.ErrorSink
	metrics scheduleout.Metrics
	logger  *slog.Logger
	clock   clock.Clock
	proj    *Projections

	mu          sync.Mutex
	snapshot    *domain.AllData
	localLoaded bool
	favorites   map[string]struct{}
	ratings     map[string]domain.Rating
	refreshing  bool
	favoriteSeq map[string]uint64
	ratingSeq   map[string]uint64
	inflight    map[string]int
	lastRefresh time.Time

	bg sync.WaitGroup
}

func NewEngine(store scheduleout.Store, remote scheduleout.Remote, sink scheduleout.ErrorSink, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		remote:      remote,
		sink:        sink,
		metrics:     noopMetrics{},
		logger:      logging.Discard(),
		clock:       clock.SystemClock{},
		proj:        newProjections(),
		favorites:   map[string]struct{}{},
		ratings:     map[string]domain.Rating{},
		favoriteSeq: map[string]uint64{},
		ratingSeq:   map[string]uint64{},
		inflight:    map[string]int{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Projections() *Projections { return e.proj }

// Start loads the local cache and kicks off a background refresh.
func (e *Engine) Start(ctx context.Context) bool {
	loaded := e.LoadLocal(ctx)
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		e.Refresh(context.WithoutCancel(ctx))
	}()
	return loaded
}

// Wait blocks until background refreshes and favorite repairs finish.
func (e *Engine) Wait() {
	e.bg.Wait()
}

// LoadLocal publishes the cached snapshot. A missing or unreadable snapshot
// is a cache miss and publishes nothing.
func (e *Engine) LoadLocal(ctx context.Context) bool {
	raw, err := e.store.ReadBlob(ctx, KeySnapshot)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			e.logger.Warn("read cached snapshot", "error", err)
		}
		return false
	}
	data, err := domain.DecodeAllData(raw)
	if err != nil {
		e.logger.Warn("cached snapshot unreadable, treating as cache miss", "error", err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	favorites, ratings, err := e.readLocal(ctx)
	if err != nil {
		e.logger.Warn("read local favorites and ratings", "error", err)
		return false
	}
	e.snapshot = &data
	e.favorites = favorites
	e.ratings = ratings
	e.localLoaded = true
	e.proj.publishSnapshot(data, favorites)
	e.proj.publishRatings(ratings)
	e.logger.Debug("loaded local snapshot", "sessions", len(data.Sessions), "favorites", len(favorites), "ratings", len(ratings))
	return true
}

// Refresh fetches the dataset and reconciles local state with it. Calls made
// while a refresh is in flight return immediately.
func (e *Engine) Refresh(ctx context.Context) {
	e.mu.Lock()
	if e.refreshing {
		e.mu.Unlock()
		return
	}
	e.refreshing = true
	e.proj.publishUpdating(true)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.refreshing = false
		e.proj.publishUpdating(false)
		e.mu.Unlock()
	}()

	data, err := e.remote.FetchAll(ctx)
	if err == nil {
		err = e.reconcile(ctx, data)
	}
	e.metrics.RefreshFinished(err == nil)
	if err != nil {
		e.logger.Warn("failed to get data from server", "error", err)
		e.report(domain.FailedToGetData)
	}
}

func (e *Engine) reconcile(ctx context.Context, data domain.AllData) error {
	raw, err := domain.EncodeAllData(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		return err
	}

	server := data.FavoriteIDs()
	merged := maps.Clone(e.favorites)
	missing := make([]string, 0)
	for id := range e.favorites {
		if _, ok := server[id]; !ok {
			missing = append(missing, id)
		}
	}
	for id := range server {
		merged[id] = struct{}{}
	}
	ratings := data.RatingMap()

	if err := e.persistLocked(ctx, raw, merged, ratings); err != nil {
		e.reloadLocalLocked(ctx)
		return err
	}

	e.snapshot = &data
	e.favorites = merged
	e.ratings = ratings
	e.lastRefresh = e.clock.Now()
	e.proj.publishSnapshot(data, merged)
	e.proj.publishRatings(ratings)
	e.logger.Info("schedule refreshed", "sessions", len(data.Sessions), "favorites", len(merged), "ratings", len(ratings), "repair", len(missing))

	sort.Strings(missing)
	e.repairFavorites(ctx, missing)
	return nil
}

func (e *Engine) persistLocked(ctx context.Context, raw []byte, favorites map[string]struct{}, ratings map[string]domain.Rating) error {
	if err := e.store.WriteStringSet(ctx, KeyFavorites, favorites); err != nil {
		return fmt.Errorf("persist favorites: %w", err)
	}
	if err := e.store.WriteIntMap(ctx, KeyVotes, domain.RatingCodes(ratings)); err != nil {
		return fmt.Errorf("persist ratings: %w", err)
	}
	if err := e.store.WriteBlob(ctx, KeySnapshot, raw); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// repairFavorites re-submits favorites the server does not know about.
// It is best-effort and not awaited by the refresh.
func (e *Engine) repairFavorites(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		var g errgroup.Group
		g.SetLimit(repairConcurrency)
		for _, id := range ids {
			g.Go(func() error {
				if err := e.remote.AddFavorite(ctx, id); err != nil {
					e.logger.Warn("re-submit favorite", "session_id", id, "error", err)
					e.metrics.MutationFinished(scheduleout.OpRepairFavorite, domain.MutationRolledBack)
					return err
				}
				e.metrics.MutationFinished(scheduleout.OpRepairFavorite, domain.MutationConfirmed)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// SetFavorite stores the change locally, then confirms it remotely. A remote
// failure restores the previous membership of sessionID.
func (e *Engine) SetFavorite(ctx context.Context, sessionID string, isFavorite bool) domain.MutationResult {
	op, failure := scheduleout.OpAddFavorite, domain.FailedToPostFavorite
	if !isFavorite {
		op, failure = scheduleout.OpRemoveFavorite, domain.FailedToDeleteFavorite
	}
	if strings.TrimSpace(sessionID) == "" {
		return domain.MutationResult{State: domain.MutationIdle, Err: fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)}
	}

	e.mu.Lock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		e.mu.Unlock()
		e.logger.Warn("read local favorites", "error", err)
		return e.rolledBack(op, sessionID, failure)
	}
	_, was := e.favorites[sessionID]
	changed := was != isFavorite
	if changed {
		next := withMembership(e.favorites, sessionID, isFavorite)
		if err := e.store.WriteStringSet(ctx, KeyFavorites, next); err != nil {
			e.mu.Unlock()
			e.logger.Warn("persist favorite", "session_id", sessionID, "error", err)
			return e.rolledBack(op, sessionID, failure)
		}
		e.favorites = next
		e.proj.publishFavorites(next)
	}
	e.favoriteSeq[sessionID]++
	seq := e.favoriteSeq[sessionID]
	e.inflight[sessionID]++
	e.mu.Unlock()
	defer e.finish(sessionID)

	var err error
	if isFavorite {
		err = e.remote.AddFavorite(ctx, sessionID)
	} else {
		err = e.remote.RemoveFavorite(ctx, sessionID)
	}
	if err == nil {
		e.metrics.MutationFinished(op, domain.MutationConfirmed)
		return domain.MutationResult{SessionID: sessionID, State: domain.MutationConfirmed}
	}

	e.logger.Warn("favorite not confirmed by server", "session_id", sessionID, "favorite", isFavorite, "error", err)
	e.mu.Lock()
	if changed && e.favoriteSeq[sessionID] == seq {
		prev := withMembership(e.favorites, sessionID, was)
		if werr := e.store.WriteStringSet(ctx, KeyFavorites, prev); werr != nil {
			e.logger.Warn("revert favorite", "session_id", sessionID, "error", werr)
		} else {
			e.favorites = prev
			e.proj.publishFavorites(prev)
		}
	}
	e.mu.Unlock()
	return e.rolledBack(op, sessionID, failure)
}

// AddRating shows the rating immediately and persists it once the server
// accepts it. On failure the persisted rating for sessionID is restored.
func (e *Engine) AddRating(ctx context.Context, sessionID string, rating domain.Rating) domain.MutationResult {
	if strings.TrimSpace(sessionID) == "" {
		return domain.MutationResult{State: domain.MutationIdle, Err: fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)}
	}
	if !rating.Valid() {
		return domain.MutationResult{SessionID: sessionID, State: domain.MutationIdle, Err: fmt.Errorf("%w: rating %d out of range", apperrors.ErrInvalidInput, rating)}
	}
	seq, ok := e.applyRating(ctx, sessionID, &rating)
	if !ok {
		return e.rolledBack(scheduleout.OpAddRating, sessionID, domain.FailedToPostRating)
	}
	defer e.finish(sessionID)
	err := e.remote.AddRating(ctx, sessionID, rating)
	if err != nil {
		e.logger.Warn("rating not accepted by server", "session_id", sessionID, "rating", int(rating), "error", err)
		e.revertRating(ctx, sessionID, seq)
		return e.rolledBack(scheduleout.OpAddRating, sessionID, domain.ClassifyRatingFailure(err))
	}
	if !e.confirmRating(ctx, sessionID, &rating, seq) {
		return e.rolledBack(scheduleout.OpAddRating, sessionID, domain.FailedToPostRating)
	}
	e.metrics.MutationFinished(scheduleout.OpAddRating, domain.MutationConfirmed)
	return domain.MutationResult{SessionID: sessionID, State: domain.MutationConfirmed}
}

// RemoveRating mirrors AddRating for deletion.
func (e *Engine) RemoveRating(ctx context.Context, sessionID string) domain.MutationResult {
	if strings.TrimSpace(sessionID) == "" {
		return domain.MutationResult{State: domain.MutationIdle, Err: fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)}
	}
	seq, ok := e.applyRating(ctx, sessionID, nil)
	if !ok {
		return e.rolledBack(scheduleout.OpRemoveRating, sessionID, domain.FailedToDeleteRating)
	}
	defer e.finish(sessionID)
	if err := e.remote.RemoveRating(ctx, sessionID); err != nil {
		e.logger.Warn("rating removal not accepted by server", "session_id", sessionID, "error", err)
		e.revertRating(ctx, sessionID, seq)
		return e.rolledBack(scheduleout.OpRemoveRating, sessionID, domain.FailedToDeleteRating)
	}
	if !e.confirmRating(ctx, sessionID, nil, seq) {
		return e.rolledBack(scheduleout.OpRemoveRating, sessionID, domain.FailedToDeleteRating)
	}
	e.metrics.MutationFinished(scheduleout.OpRemoveRating, domain.MutationConfirmed)
	return domain.MutationResult{SessionID: sessionID, State: domain.MutationConfirmed}
}

// applyRating is the optimistic step: memory only. rating nil means removal.
func (e *Engine) applyRating(ctx context.Context, sessionID string, rating *domain.Rating) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		e.logger.Warn("read local ratings", "error", err)
		return 0, false
	}
	next := maps.Clone(e.ratings)
	if rating != nil {
		next[sessionID] = *rating
	} else {
		delete(next, sessionID)
	}
	e.ratings = next
	e.proj.publishRatings(next)
	e.ratingSeq[sessionID]++
	e.inflight[sessionID]++
	return e.ratingSeq[sessionID], true
}

// confirmRating persists the confirmed value for sessionID. A newer mutation
// for the same session owns the outcome, so a stale confirmation is dropped.
func (e *Engine) confirmRating(ctx context.Context, sessionID string, rating *domain.Rating, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ratingSeq[sessionID] != seq {
		return true
	}
	persisted, err := e.store.ReadIntMap(ctx, KeyVotes)
	if err == nil {
		if persisted == nil {
			persisted = map[string]int{}
		}
		if rating != nil {
			persisted[sessionID] = int(*rating)
		} else {
			delete(persisted, sessionID)
		}
		err = e.store.WriteIntMap(ctx, KeyVotes, persisted)
	}
	if err != nil {
		e.logger.Warn("persist rating", "session_id", sessionID, "error", err)
		e.restoreRatingLocked(ctx, sessionID)
		return false
	}
	// A refresh or local reload may have replaced e.ratings while the call
	// was in flight; memory must end up equal to what was just persisted.
	next := maps.Clone(e.ratings)
	if next == nil {
		next = map[string]domain.Rating{}
	}
	if rating != nil {
		next[sessionID] = *rating
	} else {
		delete(next, sessionID)
	}
	e.ratings = next
	e.proj.publishRatings(next)
	return true
}

func (e *Engine) revertRating(ctx context.Context, sessionID string, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ratingSeq[sessionID] != seq {
		return
	}
	e.restoreRatingLocked(ctx, sessionID)
}

// restoreRatingLocked sets the in-memory rating of sessionID back to the
// persisted one.
func (e *Engine) restoreRatingLocked(ctx context.Context, sessionID string) {
	persisted, err := e.store.ReadIntMap(ctx, KeyVotes)
	if err != nil {
		e.logger.Warn("read persisted ratings", "error", err)
		persisted = map[string]int{}
	}
	next := maps.Clone(e.ratings)
	if r, err := domain.ParseRating(persisted[sessionID]); err == nil {
		next[sessionID] = r
	} else {
		delete(next, sessionID)
	}
	e.ratings = next
	e.proj.publishRatings(next)
}

// ensureLocalLocked lazily reads favorites and ratings so mutations work
// before any snapshot has been loaded.
func (e *Engine) ensureLocalLocked(ctx context.Context) error {
	if e.localLoaded {
		return nil
	}
	favorites, ratings, err := e.readLocal(ctx)
	if err != nil {
		return err
	}
	e.favorites = favorites
	e.ratings = ratings
	e.localLoaded = true
	return nil
}

func (e *Engine) reloadLocalLocked(ctx context.Context) {
	favorites, ratings, err := e.readLocal(ctx)
	if err != nil {
		e.logger.Warn("reload local favorites and ratings", "error", err)
		return
	}
	e.favorites = favorites
	e.ratings = ratings
	e.localLoaded = true
	e.proj.publishFavorites(favorites)
	e.proj.publishRatings(ratings)
}

func (e *Engine) readLocal(ctx context.Context) (map[string]struct{}, map[string]domain.Rating, error) {
	favorites, err := e.store.ReadStringSet(ctx, KeyFavorites)
	if err != nil {
		return nil, nil, fmt.Errorf("read favorites: %w", err)
	}
	codes, err := e.store.ReadIntMap(ctx, KeyVotes)
	if err != nil {
		return nil, nil, fmt.Errorf("read ratings: %w", err)
	}
	if favorites == nil {
		favorites = map[string]struct{}{}
	}
	return favorites, domain.RatingsFromCodes(codes), nil
}

func (e *Engine) rolledBack(op, sessionID string, kind domain.ErrorKind) domain.MutationResult {
	e.metrics.MutationFinished(op, domain.MutationRolledBack)
	e.report(kind)
	return domain.MutationResult{SessionID: sessionID, State: domain.MutationRolledBack, Failure: kind}
}

func (e *Engine) report(kind domain.ErrorKind) {
	e.metrics.ErrorReported(kind)
	if e.sink != nil {
		e.sink.Report(kind)
	}
}

func (e *Engine) SessionByID(id string) (domain.SessionModel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return domain.SessionModel{}, false
	}
	return domain.ResolveSession(*e.snapshot, id)
}

func (e *Engine) IsFavorite(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		return false
	}
	_, ok := e.favorites[id]
	return ok
}

func (e *Engine) Rating(ctx context.Context, id string) (domain.Rating, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		return 0, false
	}
	r, ok := e.ratings[id]
	return r, ok
}

// FavoriteIDs returns a copy of the current favorite set.
func (e *Engine) FavoriteIDs(ctx context.Context) map[string]struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		return map[string]struct{}{}
	}
	return maps.Clone(e.favorites)
}

// CurrentRatings returns a copy of the current rating map.
func (e *Engine) CurrentRatings(ctx context.Context) map[string]domain.Rating {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLocalLocked(ctx); err != nil {
		return map[string]domain.Rating{}
	}
	return maps.Clone(e.ratings)
}

// InFlight lists sessions with a favorite or rating change awaiting the
// server. Their state is MutationOptimistic until the call resolves.
func (e *Engine) InFlight() map[string]domain.MutationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.MutationState, len(e.inflight))
	for id := range e.inflight {
		out[id] = domain.MutationOptimistic
	}
	return out
}

func (e *Engine) finish(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[sessionID] <= 1 {
		delete(e.inflight, sessionID)
		return
	}
	e.inflight[sessionID]--
}

func (e *Engine) LastRefresh() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh
}

func withMembership(set map[string]struct{}, id string, member bool) map[string]struct{} {
	next := maps.Clone(set)
	if next == nil {
		next = map[string]struct{}{}
	}
	if member {
		next[id] = struct{}{}
	} else {
		delete(next, id)
	}
	return next
}

type noopMetrics struct{}

func (noopMetrics) RefreshFinished(bool)                          {}
func (noopMetrics) MutationFinished(string, domain.MutationState) {}
func (noopMetrics) ErrorReported(domain.ErrorKind)                {}
