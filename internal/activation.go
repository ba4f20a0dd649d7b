package internal

import "go.uber.org/atomic"

// Activation reports whether a metric is currently active. Activation windows
// are tracked elsewhere.
type Activation interface {
	IsActive() bool
}

// AlwaysActive is the activation of a metric with no activation rules.
type AlwaysActive struct{}

func (AlwaysActive) IsActive() bool { return true }

// ActivationState is an activation toggled by an external timer.
type ActivationState struct {
	active *atomic.Bool
}

func NewActivationState(active bool) *ActivationState {
	return &ActivationState{active: atomic.NewBool(active)}
}

func (s *ActivationState) IsActive() bool { return s.active.Load() }
func (s *ActivationState) Activate() { s.active.Store(true) }
func (s *ActivationState) Deactivate() { s.active.Store(false) }
