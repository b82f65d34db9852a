package triage

type State string

const (
	StateReceived    State = "received"
	StateDetecting   State = "detecting"
	StateClassifying State = "classifying"
	StateRendering   State = "rendering"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

var transitions = map[State][]State{
	StateReceived:    {StateDetecting, StateDone, StateFailed}, // missing source ends in done
	StateDetecting:   {StateClassifying, StateFailed},
	StateClassifying: {StateRendering, StateFailed},
	StateRendering:   {StateFinalizing, StateFailed},
	StateFinalizing:  {StateDone, StateFailed},
}

// IsValidTransition reports whether a request may move from current to next.
func IsValidTransition(current, next State) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}
