package rtb

import "slices"

// waitData pairs a completion handle with the element that ends its batch
// on the drawing list.
type waitData struct {
	handle WaitHandle
	end    Element
}

// lastCommitted returns the last rendering element committed against h.
func (m *Manager) lastCommitted(h WaitHandle) (Element, bool) {
	batch := m.rendering.Snapshot()
	for i := len(batch) - 1; i >= 0; i-- {
		if m.commits[batch[i]] == h {
			return batch[i], true
		}
	}
	return nil, false
}

func (m *Manager) addWaitItem(end Element, h WaitHandle) *waitData {
	w := &waitData{handle: h, end: end}
	m.waits.PushBack(w)
	return w
}

// removeFromDrawingLists unlinks e from the drawing list. A wait entry
// ending at e is moved back to the previous drawing element, or deleted
// when that element already ends the previous entry's batch. While the
// batch is still Committed, the entry moves to the last other element
// waiting on the same handle instead.
func (m *Manager) removeFromDrawingLists(e Element) {
	h, committed := m.commits[e]
	delete(m.commits, e)

	var prevWait *waitData
	for _, w := range m.waits.Snapshot() {
		if w.end != e {
			prevWait = w
			continue
		}
		if committed {
			if prev, ok := m.lastCommitted(h); ok {
				w.end = prev
			} else {
				m.waits.Remove(w)
			}
			break
		}
		prev, ok := m.drawing.Prev(e)
		if ok && (prevWait == nil || prevWait.end != prev) {
			w.end = prev
		} else {
			m.waits.Remove(w)
		}
		break
	}
	m.drawing.Remove(e)
}

// NotifyDrawCompleted finishes the batch completed by h: every drawing
// element after the previous entry's end marker through h's end marker is
// PostDraw'n in order.
func (m *Manager) NotifyDrawCompleted(h WaitHandle) error {
	if m.closed || m.core.IsDestroying() || m.waits.Len() == 0 {
		return nil
	}

	lost, err := m.device.IsLost()
	if err != nil {
		return newError(KindDeviceLost, "NotifyDrawCompleted", err)
	}
	if lost {
		// Drawing elements stay put; device-loss cleanup requeues them.
		m.log.Debug("rtb: draw completion ignored on lost device")
		return nil
	}

	if m.rendering.Len() == 0 && m.waits.Len() <= 1 {
		if err := m.releaseScratch(); err != nil {
			return err
		}
	}

	var prev, cur *waitData
	for _, w := range m.waits.Snapshot() {
		if w.handle == h {
			cur = w
			break
		}
		prev = w
	}
	if cur == nil {
		return nil
	}
	if !m.drawing.Contains(cur.end) {
		m.deferred = append(m.deferred, h)
		return nil
	}
	m.waits.Remove(cur)

	batch := m.drawing.Snapshot()
	start := 0
	if prev != nil {
		if i := slices.Index(batch, prev.end); i >= 0 {
			start = i + 1
		}
	}
	for _, e := range batch[start:] {
		if err := e.PostDraw(); err != nil {
			return err
		}
		m.stats.DrawsCompleted++
		if e == cur.end {
			break
		}
	}
	return nil
}

// replayDeferred re-delivers completions whose batch has since reached the
// drawing list.
func (m *Manager) replayDeferred() error {
	if len(m.deferred) == 0 {
		return nil
	}
	deferred := m.deferred
	m.deferred = nil
	for _, h := range deferred {
		if err := m.NotifyDrawCompleted(h); err != nil {
			return err
		}
	}
	return nil
}
