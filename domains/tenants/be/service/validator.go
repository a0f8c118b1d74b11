// Package service turns raw tenant-code keystrokes into a trustworthy
// validation status: debounced, at most one remote confirmation per stabilized
// input, and never a stale result for a superseded edit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brightfold/schemagate/domains/tenants/be/confirm"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

// State enumerates the validation lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateValid
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is the single current validation outcome. Code is the normalized
// input the status refers to; Offline marks a fail-open determination made
// without reaching the backend.
type Status struct {
	State   State
	Code    string
	Message string
	Offline bool
}

// Terminal reports whether the status will not change without a new edit.
func (s Status) Terminal() bool {
	return s.State == StateValid || s.State == StateInvalid
}

// Confirmer issues the remote schema confirmation call.
type Confirmer interface {
	ConfirmSchema(ctx context.Context, code string) (confirm.Result, error)
}

// DefaultDebounce is the quiet window after the last edit before the remote
// call is issued.
const DefaultDebounce = 600 * time.Millisecond

// ValidatorConfig wires a Validator.
type ValidatorConfig struct {
	Registry  *tenant.Registry
	Confirmer Confirmer
	Debounce  time.Duration
	Logger    *zap.Logger
	// OnStatus observes every status change. It is invoked with the validator's
	// internal lock held and must not call back into the validator.
	OnStatus func(Status)
}

// Validator is the debounced confirmation state machine. Scheduling a new
// validation supersedes any prior one: pending debounce timers are cancelled
// and in-flight confirmations have their results discarded on arrival when the
// generation they were issued under is no longer current.
type Validator struct {
	registry  *tenant.Registry
	confirmer Confirmer
	debounce  time.Duration
	logger    *zap.Logger
	notify    func(Status)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	target string
	timer  *time.Timer
	status Status
}

func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("tenant registry is required")
	}
	if cfg.Confirmer == nil {
		return nil, errors.New("confirmer is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnStatus == nil {
		cfg.OnStatus = func(Status) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Validator{
		registry:  cfg.Registry,
		confirmer: cfg.Confirmer,
		debounce:  cfg.Debounce,
		logger:    cfg.Logger,
		notify:    cfg.OnStatus,
		ctx:       ctx,
		cancel:    cancel,
		status:    Status{State: StateIdle},
	}, nil
}

// SetInput feeds the current text of the tenant-code field. Inputs whose
// normalized form equals the current target are ignored; anything else cancels
// the pending debounce timer and supersedes any in-flight confirmation.
func (v *Validator) SetInput(raw string) {
	code := tenant.Normalize(raw)

	v.mu.Lock()
	defer v.mu.Unlock()

	if code == v.target {
		// The normalized code did not change; keep the pending work as is.
		return
	}

	v.target = code
	v.gen++
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}

	if code == "" {
		v.setStatusLocked(Status{State: StateIdle})
		return
	}

	gen := v.gen
	v.timer = time.AfterFunc(v.debounce, func() {
		v.validate(gen, code)
	})
}

// Status returns the current validation status.
func (v *Validator) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Close cancels the pending timer and invalidates any in-flight confirmation.
// Used when the consuming view is torn down.
func (v *Validator) Close() {
	v.mu.Lock()
	v.gen++
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.mu.Unlock()
	v.cancel()
}

// Validate runs the full confirmation protocol synchronously for a single
// code, bypassing the debounce window. One-shot consumers (the CLI) use this;
// interactive inputs go through SetInput.
func (v *Validator) Validate(ctx context.Context, raw string) Status {
	code := tenant.Normalize(raw)
	if code == "" {
		return Status{State: StateIdle, Message: "enter a tenant code"}
	}
	if !v.registry.IsValid(code) {
		return v.rejectedByRegistry(code)
	}
	return v.confirmRemote(ctx, code)
}

// validate runs after the debounce window for one generation of input.
func (v *Validator) validate(gen uint64, code string) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.setStatusLocked(Status{State: StateValidating, Code: code})
	ctx := v.ctx
	v.mu.Unlock()

	var status Status
	if !v.registry.IsValid(code) {
		// Local gate failed: resolve without issuing the remote call.
		status = v.rejectedByRegistry(code)
	} else {
		status = v.confirmRemote(ctx, code)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		// A later edit superseded this confirmation; drop the result.
		v.logger.Debug("discarding stale validation result", zap.String("schema", code))
		return
	}
	v.setStatusLocked(status)
}

func (v *Validator) rejectedByRegistry(code string) Status {
	return Status{
		State:   StateInvalid,
		Code:    code,
		Message: fmt.Sprintf("unrecognized tenant code; use one of: %s", v.registry.CodesLabel()),
	}
}

// confirmRemote applies the fallback ladder to one remote confirmation
// attempt. The local allow-list already passed, so inconclusive outcomes fail
// open to Valid.
func (v *Validator) confirmRemote(ctx context.Context, code string) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("schema confirmation panicked", zap.Any("panic", r), zap.String("schema", code))
			status = v.offlineValid(code)
		}
	}()

	result, err := v.confirmer.ConfirmSchema(ctx, code)
	switch {
	case err == nil:
		// Explicit verdict: flag and message carry over untouched, even when
		// the backend sends an empty message.
		state := StateValid
		if !result.IsValid {
			state = StateInvalid
		}
		return Status{State: state, Code: code, Message: result.Message}

	case confirm.IsUndefinedFunction(err):
		// The backend has no dedicated validation endpoint; the allow-list
		// already gated this code.
		return Status{State: StateValid, Code: code, Message: fmt.Sprintf("schema '%s' is valid", code)}

	case confirm.IsNetworkUnavailable(err):
		v.logger.Warn("schema confirmation unreachable, using fallback validation", zap.String("schema", code))
		return v.offlineValid(code)

	default:
		return Status{State: StateInvalid, Code: code, Message: err.Error()}
	}
}

func (v *Validator) offlineValid(code string) Status {
	return Status{
		State:   StateValid,
		Code:    code,
		Message: fmt.Sprintf("schema '%s' is valid (offline mode)", code),
		Offline: true,
	}
}

func (v *Validator) setStatusLocked(status Status) {
	v.status = status
	v.notify(status)
}
