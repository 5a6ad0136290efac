package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const textCodeInvalidTransition = "identity_invalid_status_transition"

// ErrInvalidTransition is returned when a requested status change is not
// allowed by the lifecycle graph.
var ErrInvalidTransition = goerrors.New("invalid status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	User *User
	From Status
	To   Status
	Meta TransitionMetadata
}

// TransitionHook is executed before or after a transition is persisted.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// UserStateMachine drives user lifecycle changes through the allowed
// status graph and publishes the resulting activity events.
type UserStateMachine interface {
	Transition(ctx context.Context, user *User, target Status, opts ...TransitionOption) (*User, error)
	CurrentStatus(user *User) Status
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the sink that receives lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses the lifecycle graph (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewUserStateMachine returns the default implementation backed by the
// provided users repository.
func NewUserStateMachine(users Users, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users:        users,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users        Users
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata    TransitionMetadata
	force       bool
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *userStateMachine) Transition(ctx context.Context, user *User, target Status, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}

	user.EnsureStatus()
	from := user.Status
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return user, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !options.force && !CanTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	ctxData := TransitionContext{
		User: user,
		From: from,
		To:   target,
		Meta: options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, ctxData); err != nil {
		return nil, err
	}

	now := sm.now()
	updated, err := sm.users.Update(ctx, &User{
		ID:        user.ID,
		Status:    target,
		UpdatedAt: &now,
	}, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return nil, err
	}

	user.Status = updated.Status
	user.UpdatedAt = updated.UpdatedAt

	if err := sm.runHooks(ctx, options.afterHooks, ctxData); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		UserID:     user.ID.String(),
		Email:      user.Email,
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(ctxData.Meta),
		OccurredAt: now,
	})

	return user, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) Status {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}

func (sm *userStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "status transition hook failed")
		}
	}
	return nil
}

func (sm *userStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	out := make(map[string]any, len(meta.Metadata)+1)
	for k, v := range meta.Metadata {
		out[k] = v
	}
	if meta.Reason != "" {
		out["reason"] = meta.Reason
	}
	return out
}

func (sm *userStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := sm.activitySink.Record(ctx, event); err != nil {
		sm.logger.Error("failed to record %s activity: %s", event.EventType, err)
	}
}
