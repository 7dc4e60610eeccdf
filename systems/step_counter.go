package systems

// StepCounter advances the step count.
func StepCounter(s *State) {
	s.Steps++
}
