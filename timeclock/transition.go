package timeclock

// =============================================================================
// TRANSITION VALIDATOR - Pure whitelist of legal clock actions
// =============================================================================

// transitions is the full table of legal actions per status:
//
//	OUT         -> IN
//	IN          -> OUT, BREAK_START
//	BREAK_START -> OUT, BREAK_END
//
// BREAK_END never appears as a current status; the resolver folds it
// into IN before validation.
var transitions = map[Status][]Action{
	StatusOut:        {ActionIn},
	StatusIn:         {ActionOut, ActionBreakStart},
	StatusBreakStart: {ActionOut, ActionBreakEnd},
}

// CanTransition reports whether action is legal for a user currently in
// status. It is a strict whitelist: unknown actions and unknown
// statuses are always rejected. Pure function, no side effects.
func CanTransition(action Action, status Status) bool {
	for _, a := range transitions[status] {
		if a == action {
			return true
		}
	}
	return false
}
