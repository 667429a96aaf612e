package engine

import "fmt"

// Phase is the orchestration state of one build invocation.
type Phase string

const (
	// PhaseIdle is the state before Apply.
	PhaseIdle Phase = "idle"

	// PhaseExtensionRegistered indicates the user-facing extension exists with defaults.
	PhaseExtensionRegistered Phase = "extension_registered"

	// PhaseAwaitingHostPlugins indicates orchestration is deferred until the
	// host build finishes configuring targets and source sets.
	PhaseAwaitingHostPlugins Phase = "awaiting_host_plugins"

	// PhaseConfigurationResolved indicates the generation context is frozen.
	PhaseConfigurationResolved Phase = "configuration_resolved"

	// PhaseGeneratorsInstantiated indicates every generator instance is
	// registered with the host. Terminal.
	PhaseGeneratorsInstantiated Phase = "generators_instantiated"

	// PhaseFailed indicates orchestration aborted. Terminal.
	PhaseFailed Phase = "failed"
)

// IsTerminal returns true if no further transition is allowed.
func (p Phase) IsTerminal() bool {
	return p == PhaseGeneratorsInstantiated || p == PhaseFailed
}

// Validate checks if the phase is known.
func (p Phase) Validate() error {
	switch p {
	case PhaseIdle, PhaseExtensionRegistered, PhaseAwaitingHostPlugins,
		PhaseConfigurationResolved, PhaseGeneratorsInstantiated, PhaseFailed:
		return nil
	default:
		return fmt.Errorf("invalid phase: %s", p)
	}
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseExtensionRegistered
	case PhaseExtensionRegistered:
		return to == PhaseAwaitingHostPlugins || to == PhaseFailed
	case PhaseAwaitingHostPlugins:
		return to == PhaseConfigurationResolved || to == PhaseFailed
	case PhaseConfigurationResolved:
		return to == PhaseGeneratorsInstantiated || to == PhaseFailed
	default:
		return false
	}
}

// transition moves *cur from the expected phase to the next one. The current
// phase is left unchanged when the transition is not allowed.
func transition(cur *Phase, from, to Phase) error {
	if *cur != from {
		return NewInternalError(
			fmt.Sprintf("invalid orchestration transition: expected %s, got %s", from, *cur), nil).
			WithCode(ErrCodeInvalidTransition)
	}
	if !isAllowedTransition(from, to) {
		return NewInternalError(
			fmt.Sprintf("disallowed orchestration transition: %s -> %s", from, to), nil).
			WithCode(ErrCodeInvalidTransition)
	}
	*cur = to
	return nil
}
