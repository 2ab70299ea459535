package symbols

// LoopContext identifies the loop whose body is being emitted.
type LoopContext struct {
	ID         string
	Variable   string
	Collection string
}

// LoopStack holds the open loops, innermost last.
type LoopStack struct {
	frames []LoopContext
}

// Push opens a loop context.
func (s *LoopStack) Push(c LoopContext) {
	s.frames = append(s.frames, c)
}

// Pop closes the innermost loop context. Popping an empty stack is a no-op.
func (s *LoopStack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Top returns the innermost loop context.
func (s *LoopStack) Top() (LoopContext, bool) {
	if len(s.frames) == 0 {
		return LoopContext{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Open returns the open loop contexts, innermost first.
func (s *LoopStack) Open() []LoopContext {
	out := make([]LoopContext, len(s.frames))
	for i, c := range s.frames {
		out[len(s.frames)-1-i] = c
	}
	return out
}

// Enter pushes c and returns the matching pop, for use with defer.
func (s *LoopStack) Enter(c LoopContext) func() {
	s.Push(c)
	depth := len(s.frames)
	return func() {
		if len(s.frames) == depth {
			s.Pop()
		}
	}
}
