// Package approval implements the tool approval policy: the rule set that
// decides whether a tool call executes automatically or requires user
// confirmation first.
//
// The policy is a pure lookup keyed by tool name, with one global override.
// It is persisted in its own small key-value store, deliberately separate
// from chat and settings persistence.
package approval

// Policy is the effective decision for a tool name.
type Policy int

const (
	// PolicyPrompt is the default: pause and ask the user.
	PolicyPrompt Policy = iota
	// PolicyAlways means the user approved this tool permanently.
	PolicyAlways
	// PolicyYolo is the global auto-approve override; it applies to every
	// tool until cleared.
	PolicyYolo
)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "always"
	case PolicyYolo:
		return "yolo"
	default:
		return "prompt"
	}
}

// AutoApproves reports whether the policy executes the tool without pausing.
func (p Policy) AutoApproves() bool {
	return p == PolicyAlways || p == PolicyYolo
}

// Decision is a user response to an approval prompt.
type Decision int

const (
	// DecisionOnce approves the current call only. Nothing is persisted,
	// but any global override is cleared.
	DecisionOnce Decision = iota
	// DecisionAlways approves the tool permanently and clears the global
	// override.
	DecisionAlways
	// DecisionDeny refuses the current call. Nothing is persisted, but any
	// global override is cleared.
	DecisionDeny
)

// Approved reports whether the decision lets the current call run.
func (d Decision) Approved() bool {
	return d == DecisionOnce || d == DecisionAlways
}

func (d Decision) String() string {
	switch d {
	case DecisionOnce:
		return "once"
	case DecisionAlways:
		return "always"
	case DecisionDeny:
		return "deny"
	}
	return "unknown"
}

// Store is the injected approval-policy persistence. Implementations must
// apply the precedence rules of Apply identically; tests share a conformance
// suite over both.
type Store interface {
	// PolicyFor returns the effective policy for a tool name: PolicyYolo
	// when the global override is set, PolicyAlways when the tool was
	// approved permanently, PolicyPrompt otherwise.
	PolicyFor(tool string) (Policy, error)

	// Apply records a user decision for a tool with the defined precedence:
	// DecisionAlways persists the tool and clears the global override;
	// DecisionOnce and DecisionDeny persist nothing but clear the global
	// override.
	Apply(tool string, d Decision) error

	// SetYolo toggles the global auto-approve override. Enabling it clears
	// nothing else.
	SetYolo(enabled bool) error

	// Yolo reports the global override flag.
	Yolo() (bool, error)
}
