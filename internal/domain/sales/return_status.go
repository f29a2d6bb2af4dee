package sales

// ReturnStatus tracks how much of a sale has been returned
type ReturnStatus string

const (
	ReturnStatusNormal        ReturnStatus = "normal"
	ReturnStatusPartialReturn ReturnStatus = "partial_return"
	ReturnStatusFullyReturned ReturnStatus = "fully_returned"
)

// String returns the string representation
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusNormal, ReturnStatusPartialReturn, ReturnStatusFullyReturned:
		return true
	}
	return false
}

// IsTerminal returns true once nothing is left to return
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusFullyReturned
}

// CanTransitionTo checks if a transition to the target status is valid.
// partial_return may repeat (each further partial return).
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusNormal:
		return target == ReturnStatusPartialReturn || target == ReturnStatusFullyReturned
	case ReturnStatusPartialReturn:
		return target == ReturnStatusPartialReturn || target == ReturnStatusFullyReturned
	}
	return false
}

// statusAfterReturn is the status once returned out of lineCount items are back
func statusAfterReturn(returned, lineCount int) ReturnStatus {
	if returned >= lineCount {
		return ReturnStatusFullyReturned
	}
	return ReturnStatusPartialReturn
}
