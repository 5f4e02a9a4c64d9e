package action

import "fmt"

// Status is the three-state worker cycle gating which actions are
// currently valid. It is refreshed authoritatively from the gateway at
// validation time and advanced optimistically after an accepted action.
type Status string

const (
	StatusNotClockedIn Status = "not_clocked_in"
	StatusClockedIn    Status = "clocked_in"
	StatusOnMeal       Status = "on_meal"
)

// ParseStatus converts a gateway-reported status string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNotClockedIn, StatusClockedIn, StatusOnMeal:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown worker status %q", s)
}

// TransitionError reports an action requested in a state that forbids it.
// Rejected before any network or queue interaction.
type TransitionError struct {
	From      Status
	Requested Type
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q not allowed while %s", e.Requested, e.From)
}

// transitions is the full legal transition table. Meal is a sub-cycle of
// the clocked-in state; clock-out is reachable from both clocked_in and
// on_meal.
var transitions = map[Status]map[Type]Status{
	StatusNotClockedIn: {
		TypeClockIn: StatusClockedIn,
	},
	StatusClockedIn: {
		TypeMealStart: StatusOnMeal,
		TypeClockOut:  StatusNotClockedIn,
	},
	StatusOnMeal: {
		TypeMealEnd:  StatusClockedIn,
		TypeClockOut: StatusNotClockedIn,
	},
}

// Next returns the optimistic resulting status for a requested action,
// or a *TransitionError if the table forbids it.
func (s Status) Next(t Type) (Status, error) {
	if next, ok := transitions[s][t]; ok {
		return next, nil
	}
	return "", &TransitionError{From: s, Requested: t}
}

// Allows reports whether the action is legal in the current status.
func (s Status) Allows(t Type) bool {
	_, ok := transitions[s][t]
	return ok
}

// AllowedActions returns the actions legal in the current status, in a
// stable display order.
func (s Status) AllowedActions() []Type {
	order := []Type{TypeClockIn, TypeMealStart, TypeMealEnd, TypeClockOut}
	var allowed []Type
	for _, t := range order {
		if s.Allows(t) {
			allowed = append(allowed, t)
		}
	}
	return allowed
}
