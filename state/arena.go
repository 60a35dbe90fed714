package state

// Arena owns the id space of all states created against it. Ids are small
// integers; a destroyed state's id is handed to the next state created.
type Arena struct {
	states []State
	free   []int
	live   int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) alloc(s State) int {
	a.live++
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.states[id] = s
		return id
	}
	a.states = append(a.states, s)
	return len(a.states) - 1
}

func (a *Arena) release(id int) {
	if id < 0 || id >= len(a.states) || a.states[id] == nil {
		return
	}
	a.states[id] = nil
	a.free = append(a.free, id)
	a.live--
}

// Get returns the live state with the given id, or nil.
func (a *Arena) Get(id int) State {
	if id < 0 || id >= len(a.states) {
		return nil
	}
	return a.states[id]
}

// Len reports the number of live states.
func (a *Arena) Len() int { return a.live }
