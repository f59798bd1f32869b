package rtb

import "github.com/gogpu/rtb/internal/seq"

// CheckForLostSurfaceContent releases requests whose cached data the device
// discarded, for example across suspend. Live requests are requeued.
func (m *Manager) CheckForLostSurfaceContent() error {
	return m.cleanup(true, false)
}

// CleanupDeviceRelatedResources drops every device resource after device
// loss. Live requests are requeued to Preparing; cached results are
// dropped and raise NeedsSurfaceContentsLost when listeners must know.
func (m *Manager) CleanupDeviceRelatedResources(cleanupComposition bool) error {
	return m.cleanup(false, cleanupComposition)
}

func (m *Manager) cleanup(discardedOnly, cleanupComposition bool) error {
	passes := []struct {
		list    *seq.List[Element]
		requeue bool
		drop    bool
	}{
		{m.pending, false, false},
		{m.rendering, true, true},
		{m.drawing, true, true},
		{m.idle, false, true},
	}
	for _, p := range passes {
		if err := m.cleanupList(p.list, p.requeue, p.drop, discardedOnly, cleanupComposition); err != nil {
			return err
		}
	}
	if !discardedOnly {
		m.waits.Clear()
		clear(m.commits)
		m.deferred = nil
	}
	m.log.Debug("rtb: device resources cleaned",
		"discarded_only", discardedOnly,
		"contents_lost", m.needsSurfaceContentsLost)
	return nil
}

// cleanupList releases resources of the elements in l. Touched elements
// leave l when drop is set, and go back to Preparing when requeue is set.
func (m *Manager) cleanupList(l *seq.List[Element], requeue, drop, discardedOnly, cleanupComposition bool) error {
	for _, e := range l.Snapshot() {
		if !l.Contains(e) {
			continue
		}
		if discardedOnly && !e.HasLostHardwareResources() {
			continue
		}

		if l == m.idle && e.RequiresContentsLostNotification() {
			m.needsSurfaceContentsLost = true
		}

		if discardedOnly {
			if d := e.Data(); d != nil {
				d.CleanupDeviceResources()
			}
			e.AbortPixelWaits(ErrReadback)
		} else {
			e.CleanupHardwareResources(cleanupComposition)
		}

		if drop {
			if l == m.drawing {
				m.removeFromDrawingLists(e)
			} else {
				l.Remove(e)
			}
		}
		if requeue {
			if err := e.SetState(StatePreparing); err != nil {
				return err
			}
		}
	}
	return nil
}
