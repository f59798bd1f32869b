package rtb

import (
	"context"
	"fmt"
)

// PickupForRender moves pending requests whose root can be captured to
// Rendering and fails the others.
func (m *Manager) PickupForRender() error {
	if m.core.IsSettingRootVisual() {
		return nil
	}
	// A background host has no tree to keep alive; captures would only
	// record placeholders while decodes are in flight.
	if m.core.IsBackgroundTask() && m.core.PendingDecodeCount() > 0 {
		return nil
	}

	for _, e := range m.pending.Snapshot() {
		if !m.pending.Contains(e) {
			continue
		}
		var root Visual
		if d := e.Data(); d != nil {
			root = d.RenderRoot()
		}
		if root != nil && m.CanPickupForRender(root) {
			if err := e.SetState(StateRendering); err != nil {
				return err
			}
			continue
		}
		m.stats.RendersFailed++
		e.FailRender(ErrIneligible)
	}
	return nil
}

// CanPickupForRender reports whether v can be captured this frame.
func (m *Manager) CanPickupForRender(v Visual) bool {
	if v == nil {
		return false
	}
	// Roots are never active.
	if !v.IsActive() && v.Kind() != KindRoot {
		return false
	}
	if v.Kind() == KindCaptureRoot {
		return false
	}

	main := m.core.MainRoot()
	for cur := v; cur != nil; {
		if !cur.IsVisible() {
			return false
		}
		switch cur.Kind() {
		case KindRoot:
			if cur != main {
				return false
			}
		case KindPopup, KindForeign:
			return false
		}
		parent := cur.Parent()
		if parent != nil && parent.Kind() == KindForeign {
			return false
		}
		cur = parent
	}
	return true
}

// RenderElements records every Rendering request whose subtree is ready and
// demotes the others for a retry next frame. It reports whether anything
// was recorded.
func (m *Manager) RenderElements() (hasPendingDraws bool, err error) {
	if m.rendering.Len() == 0 {
		return false, nil
	}

	for _, e := range m.rendering.Snapshot() {
		if !m.rendering.Contains(e) || e.State() != StateRendering {
			continue
		}
		d := e.Data()
		var root Visual
		if d != nil {
			root = d.RenderRoot()
		}
		if root == nil {
			m.stats.RendersFailed++
			e.FailRender(ErrIneligible)
			continue
		}

		ready, err := root.ReadyForCapture()
		if err != nil {
			return hasPendingDraws, err
		}
		if ready {
			if err := e.SetState(StateRendered); err != nil {
				return hasPendingDraws, err
			}
			hasPendingDraws = true
			continue
		}

		d.ResetState()
		if err := e.SetState(StatePreparing); err != nil {
			return hasPendingDraws, err
		}
		m.stats.Retries++
		if m.scheduler != nil {
			if err := m.scheduler.RequestAdditionalFrame(0, FrameReasonCaptureRetry); err != nil {
				return hasPendingDraws, err
			}
		}
	}

	if m.rendering.Len() == 0 && m.drawing.Len() == 0 {
		if err := m.releaseScratch(); err != nil {
			return hasPendingDraws, err
		}
	}
	return hasPendingDraws, nil
}

// PreCommit starts composition of every Rendered request and queues a
// background wait for its completion.
func (m *Manager) PreCommit(f Frame) error {
	if m.rendering.Len() == 0 {
		return nil
	}

	if m.core.IsBackgroundTask() {
		if err := m.core.FlushDecodeRequests(); err != nil {
			return err
		}
		if m.core.PendingDecodeCount() > 0 {
			return m.demoteRendered()
		}
	}

	if m.shared {
		return m.preCommitShared(f)
	}

	for _, e := range m.rendering.Snapshot() {
		if !m.rendering.Contains(e) || e.State() != StateRendered {
			continue
		}
		ev := NewEvent()
		if err := e.PreCommit(f, ev); err != nil {
			_ = ev.Close()
			return err
		}
		w := m.addWaitItem(e, ev)
		if err := m.submitWaitWorkItem(ev); err != nil {
			m.waits.Remove(w)
			_ = ev.Close()
			return err
		}
		m.commits[e] = ev
		if err := e.SetState(StateCommitted); err != nil {
			return err
		}
	}
	return nil
}

// preCommitShared covers all Rendered requests with one event and one wait
// entry ending at the last of them.
func (m *Manager) preCommitShared(f Frame) error {
	var batch []Element
	for _, e := range m.rendering.Snapshot() {
		if m.rendering.Contains(e) && e.State() == StateRendered {
			batch = append(batch, e)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	ev := NewEvent()
	for _, e := range batch {
		if err := e.PreCommit(f, ev); err != nil {
			_ = ev.Close()
			return err
		}
	}
	w := m.addWaitItem(batch[len(batch)-1], ev)
	if err := m.submitWaitWorkItem(ev); err != nil {
		m.waits.Remove(w)
		_ = ev.Close()
		return err
	}
	for _, e := range batch {
		m.commits[e] = ev
		if err := e.SetState(StateCommitted); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) demoteRendered() error {
	for _, e := range m.rendering.Snapshot() {
		if !m.rendering.Contains(e) || e.State() != StateRendered {
			continue
		}
		if d := e.Data(); d != nil {
			d.ResetState()
		}
		if err := e.SetState(StatePreparing); err != nil {
			return err
		}
		m.stats.Retries++
	}
	return nil
}

func (m *Manager) submitWaitWorkItem(h WaitHandle) error {
	if rw, ok := m.device.(ResourceWaiter); ok {
		if err := rw.WaitForResourceCreation(context.Background()); err != nil {
			return err
		}
	}
	ex := newWaitExecutor(m, h)
	item, err := m.factory.CreateWorkItem(ex.WaitAndExecuteOnUIThread)
	if err != nil {
		return newError(KindFatal, "PreCommit", err)
	}
	if err := item.Submit(); err != nil {
		return newError(KindFatal, "PreCommit", err)
	}
	m.stats.WaitsSubmitted++
	return nil
}

// DrawCompTrees moves every Committed request to the drawing list, then
// delivers completions that arrived early.
func (m *Manager) DrawCompTrees() error {
	if m.rendering.Len() > 0 {
		for _, e := range m.rendering.Snapshot() {
			if !m.rendering.Contains(e) || e.State() != StateCommitted {
				continue
			}
			if err := e.SetState(StateDrawing); err != nil {
				return err
			}
		}
		if m.rendering.Len() == 0 && m.drawing.Len() == 0 {
			if err := m.releaseScratch(); err != nil {
				return err
			}
		}
	}
	return m.replayDeferred()
}

// Tick runs one frame: pickup, record, pre-commit, device commit and the
// draw hand-off. It reports whether anything was recorded.
func (m *Manager) Tick(ctx context.Context) (hasPendingDraws bool, err error) {
	if m.closed {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.frame++
	f := Frame{Seq: m.frame, Device: m.device}

	if err := m.PickupForRender(); err != nil {
		return false, fmt.Errorf("rtb: pickup: %w", err)
	}
	hasPendingDraws, err = m.RenderElements()
	if err != nil {
		return hasPendingDraws, fmt.Errorf("rtb: render: %w", err)
	}
	if err := m.PreCommit(f); err != nil {
		return hasPendingDraws, fmt.Errorf("rtb: precommit: %w", err)
	}
	if err := m.device.Commit(); err != nil {
		return hasPendingDraws, fmt.Errorf("rtb: commit: %w", err)
	}
	if err := m.DrawCompTrees(); err != nil {
		return hasPendingDraws, fmt.Errorf("rtb: draw: %w", err)
	}
	m.log.Debug("rtb: frame", "seq", f.Seq, "rendered", hasPendingDraws,
		"pending", m.pending.Len(), "drawing", m.drawing.Len(), "waits", m.waits.Len())
	return hasPendingDraws, nil
}

// releaseScratch frees staging memory in hosts without an on-screen tree,
// where nothing else would reclaim it.
func (m *Manager) releaseScratch() error {
	if !m.core.IsBackgroundTask() {
		return nil
	}
	if err := m.device.ReleaseScratchResources(); err != nil {
		return fmt.Errorf("rtb: release scratch: %w", err)
	}
	return nil
}
