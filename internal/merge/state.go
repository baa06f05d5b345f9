package merge

import "fmt"

// State is a step of one merge attempt.
type State string

const (
	Diffing            State = "diffing"
	ConflictCollection State = "conflict_collection"
	Blocked            State = "blocked"
	Committing         State = "committing"
	Merged             State = "merged"
)

var transitions = map[State][]State{
	Diffing:            {ConflictCollection},
	ConflictCollection: {Blocked, Committing},
	Committing:         {Merged},
}

// Attempt tracks one merge attempt through its states.
type Attempt struct {
	state State
	trail []State
}

func NewAttempt() *Attempt {
	return &Attempt{state: Diffing, trail: []State{Diffing}}
}

func (a *Attempt) State() State { return a.state }

// Trail returns every state visited so far.
func (a *Attempt) Trail() []State {
	return append([]State(nil), a.trail...)
}

func (a *Attempt) Advance(to State) error {
	for _, allowed := range transitions[a.state] {
		if allowed == to {
			a.state = to
			a.trail = append(a.trail, to)
			return nil
		}
	}
	return fmt.Errorf("merge: invalid transition %s -> %s", a.state, to)
}

// Terminal reports whether no further transition exists.
func (a *Attempt) Terminal() bool {
	return len(transitions[a.state]) == 0
}
