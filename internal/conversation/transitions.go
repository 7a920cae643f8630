package conversation

// validTransitions contains the permitted forward moves of the booking flow.
var validTransitions = map[Step][]Step{
	StepStart: {
		StepSelectingService,
	},
	StepSelectingService: {
		StepAwaitingDateTime,
	},
	StepAwaitingDateTime: {
		StepConfirmingBooking,
	},
	StepConfirmingBooking: {
		StepCompleted,
		StepAwaitingDateTime,
	},
}

// IsTransitionAllowed reports whether moving from one step to another is valid.
// Resets to Start and the survey job's overwrite to AwaitingSurveyScore are
// always permitted.
func IsTransitionAllowed(from, to Step) bool {
	if to == StepStart || to == StepAwaitingSurveyScore {
		return true
	}

	for _, step := range validTransitions[from] {
		if step == to {
			return true
		}
	}

	return false
}
