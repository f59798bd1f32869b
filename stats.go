package rtb

// Stats is a snapshot of manager activity.
type Stats struct {
	// List sizes.
	Idle      int
	Pending   int
	Rendering int
	Drawing   int
	Waits     int

	WaitsSubmitted uint64
	DrawsCompleted uint64
	RendersFailed  uint64
	Retries        uint64
	Readbacks      uint64
	Frames         uint64
}

// Stats returns a snapshot of the lists and counters. UI goroutine only.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Idle = m.idle.Len()
	s.Pending = m.pending.Len()
	s.Rendering = m.rendering.Len()
	s.Drawing = m.drawing.Len()
	s.Waits = m.waits.Len()
	s.Frames = m.frame
	return s
}
