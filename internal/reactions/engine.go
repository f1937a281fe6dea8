package reactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Engine serializes reaction toggles per (user, kind, target) and emits the
// follow-up notification, cache invalidation and count broadcast.
type Engine struct {
	store    Store
	notifier notifications.Notifier
	observer Observer
	cache    CountCache
	locks    *lockArena
	reads    *countReads
}

// NewEngine creates a reaction engine
func NewEngine(store Store, notifier notifications.Notifier) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		locks:    newLockArena(),
		reads:    newCountReads(),
	}
}

// SetObserver registers the listener for count changes. Call before serving traffic.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// SetCache enables cached counts
func (e *Engine) SetCache(c CountCache) { e.cache = c }

// React toggles actor's reaction of type reactionType on the target:
// none -> added, same type -> removed, other type -> updated.
func (e *Engine) React(ctx context.Context, actorID uint, kind Kind, targetID uint, reactionType string) (res *Result, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceReaction(ctx, string(kind), targetID, actorID, reactionType)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !ValidType(kind, reactionType) {
		return nil, fmt.Errorf("%w: %q is not a %s reaction", ErrInvalidReaction, reactionType, kind)
	}
	target, err := e.store.FindTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	unlock := e.acquire(actorID, kind, targetID)
	res, err = e.toggle(ctx, actorID, target, reactionType)
	if errors.Is(err, ErrDuplicate) {
		// another process inserted first; re-read and apply against its row
		res, err = e.toggle(ctx, actorID, target, reactionType)
	}
	unlock()
	if err != nil {
		return nil, err
	}

	e.committed(ctx, actorID, target, res)
	return res, nil
}

// Remove deletes actor's reaction on the target whatever its type
func (e *Engine) Remove(ctx context.Context, actorID uint, kind Kind, targetID uint) (*Result, error) {
	if _, ok := typesByKind[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown target kind %q", ErrInvalidReaction, kind)
	}
	target, err := e.store.FindTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	unlock := e.acquire(actorID, kind, targetID)
	existing, err := e.store.FindReaction(ctx, actorID, kind, targetID)
	if err == nil && existing == nil {
		err = ErrNoReaction
	}
	if err == nil {
		err = e.store.DeleteReaction(ctx, existing.ID)
	}
	unlock()
	if err != nil {
		return nil, err
	}

	res := &Result{Outcome: OutcomeRemoved, Previous: existing.Type}
	e.committed(ctx, actorID, target, res)
	return res, nil
}

func (e *Engine) acquire(actorID uint, kind Kind, targetID uint) func() {
	start := time.Now()
	unlock := e.locks.lock(lockKey{userID: actorID, kind: kind, targetID: targetID})
	metrics.App().ReactionLockWait.Observe(time.Since(start).Seconds())
	return unlock
}

// toggle runs the state machine for one (user, target) pair. Caller holds the lock.
func (e *Engine) toggle(ctx context.Context, actorID uint, target *Target, reactionType string) (*Result, error) {
	existing, err := e.store.FindReaction(ctx, actorID, target.Kind, target.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case existing == nil:
		r := &models.Reaction{
			UserID:     actorID,
			TargetKind: string(target.Kind),
			TargetID:   target.ID,
			Type:       reactionType,
		}
		if err := e.store.CreateReaction(ctx, r); err != nil {
			return nil, err
		}
		return &Result{
			State:    State{Reacted: true, Type: reactionType},
			Outcome:  OutcomeAdded,
			Reaction: r,
		}, nil

	case existing.Type == reactionType:
		if err := e.store.DeleteReaction(ctx, existing.ID); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeRemoved, Previous: existing.Type}, nil

	default:
		if err := e.store.UpdateReactionType(ctx, existing.ID, reactionType); err != nil {
			return nil, err
		}
		previous := existing.Type
		existing.Type = reactionType
		return &Result{
			State:    State{Reacted: true, Type: reactionType},
			Outcome:  OutcomeUpdated,
			Reaction: existing,
			Previous: previous,
		}, nil
	}
}

// committed runs the side effects of a stored transition. Failures here are
// logged; the transition itself already happened.
func (e *Engine) committed(ctx context.Context, actorID uint, target *Target, res *Result) {
	log := logger.FromContext(ctx)
	metrics.App().ReactionTransitions.WithLabelValues(string(target.Kind), string(res.Outcome)).Inc()

	e.refreshCounts(ctx, target)

	if actorID == target.OwnerID || e.notifier == nil {
		return
	}
	if err := e.notifyOwner(ctx, actorID, target, res); err != nil {
		log.Warn("Failed to notify reaction target owner",
			logger.WithUserID(target.OwnerID),
			zap.String("kind", string(target.Kind)),
			zap.Uint("target_id", target.ID),
			zap.Error(err))
	}
}

// refreshCounts reloads the target's counts after a write, stores them in the
// cache and hands them to the observer. The target lock orders refreshes so
// the last one to run reflects every committed write.
func (e *Engine) refreshCounts(ctx context.Context, target *Target) {
	if e.cache == nil && e.observer == nil {
		return
	}
	key := targetLock(target.Kind, target.ID)
	unlock := e.locks.lock(key)
	defer unlock()

	e.reads.written(key)
	counts, err := e.loadCounts(ctx, target.Kind, target.ID)
	if err != nil {
		if e.cache != nil {
			e.cache.Invalidate(ctx, target.Kind, target.ID)
		}
		logger.FromContext(ctx).Warn("Failed to reload reaction counts",
			zap.String("kind", string(target.Kind)),
			zap.Uint("target_id", target.ID),
			zap.Error(err))
		return
	}

	if e.cache != nil {
		e.cache.Set(ctx, target.Kind, target.ID, counts)
	}
	if e.observer != nil {
		e.observer.ReactionsChanged(ctx, target.Kind, target.ID, counts)
	}
}

func (e *Engine) notifyOwner(ctx context.Context, actorID uint, target *Target, res *Result) error {
	name, err := e.store.Username(ctx, actorID)
	if err != nil {
		return err
	}

	opts := notifications.Options{
		SenderID:       actorID,
		ReactionStatus: string(res.Outcome),
	}
	postID := target.PostID
	opts.PostID = &postID
	if target.Kind == KindComment {
		commentID := target.ID
		opts.Type = models.NotificationCommentReaction
		opts.CommentID = &commentID
	} else {
		opts.Type = models.NotificationReaction
	}

	_, err = e.notifier.Notify(ctx, target.OwnerID, reactionMessage(name, target.Kind, res), opts)
	return err
}

func reactionMessage(actor string, kind Kind, res *Result) string {
	switch res.Outcome {
	case OutcomeAdded:
		return fmt.Sprintf("%s reacted to your %s with %s", actor, kind, res.State.Type)
	case OutcomeUpdated:
		return fmt.Sprintf("%s changed their reaction on your %s to %s", actor, kind, res.State.Type)
	default:
		return fmt.Sprintf("%s removed their reaction from your %s", actor, kind)
	}
}

// Summary returns zero-filled counts for the target and requester's own
// reaction. The two are separate reads and may briefly disagree.
func (e *Engine) Summary(ctx context.Context, kind Kind, targetID, requesterID uint) (*Summary, error) {
	if _, ok := typesByKind[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown target kind %q", ErrInvalidReaction, kind)
	}
	if _, err := e.store.FindTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	counts, err := e.counts(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Counts: counts}

	if requesterID != 0 {
		mine, err := e.store.FindReaction(ctx, requesterID, kind, targetID)
		if err != nil {
			return nil, err
		}
		if mine != nil {
			t := mine.Type
			summary.UserReaction = &t
		}
	}
	return summary, nil
}

// Counts returns the zero-filled counts for a target without checking it exists
func (e *Engine) Counts(ctx context.Context, kind Kind, targetID uint) ([]TypeCount, error) {
	return e.counts(ctx, kind, targetID)
}

func (e *Engine) counts(ctx context.Context, kind Kind, targetID uint) ([]TypeCount, error) {
	if e.cache == nil {
		return e.loadCounts(ctx, kind, targetID)
	}
	if cached, ok := e.cache.Get(ctx, kind, targetID); ok {
		return cached, nil
	}

	key := targetLock(kind, targetID)
	gen := e.reads.begin(key)
	counts, err := e.loadCounts(ctx, kind, targetID)

	unlock := e.locks.lock(key)
	current := e.reads.finish(key, gen)
	if err == nil && current {
		e.cache.Set(ctx, kind, targetID, counts)
	}
	unlock()
	return counts, err
}

func (e *Engine) loadCounts(ctx context.Context, kind Kind, targetID uint) ([]TypeCount, error) {
	raw, err := e.store.CountByType(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	types := typesByKind[kind]
	counts := make([]TypeCount, 0, len(types))
	for _, t := range types {
		counts = append(counts, TypeCount{Type: t, Count: raw[t]})
	}
	return counts, nil
}

// Reactors lists who reacted to the target, optionally only with reactionType
func (e *Engine) Reactors(ctx context.Context, kind Kind, targetID uint, reactionType string) ([]models.Reaction, error) {
	if _, ok := typesByKind[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown target kind %q", ErrInvalidReaction, kind)
	}
	if reactionType != "" && !ValidType(kind, reactionType) {
		return nil, fmt.Errorf("%w: %q is not a %s reaction", ErrInvalidReaction, reactionType, kind)
	}
	if _, err := e.store.FindTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}
	return e.store.ListReactors(ctx, kind, targetID, reactionType)
}
