package client

import (
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
)

// Timeline is the client-side reconciliation buffer. Local holds actions
// drawn by this client in order, remote holds actions received from other
// members and from server snapshots. The rendered sequence is local ++ remote
// with structural duplicates removed.
//
// A Timeline is not safe for concurrent use; the session event loop owns it.
type Timeline struct {
	selfID  string
	local   []drawing.Action
	remote  []drawing.Action
	redo    []drawing.Action
	version uint64
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// SetSelf records the member id assigned by the server so that echoes of our
// own actions are never added to remote.
func (t *Timeline) SetSelf(id string) {
	t.selfID = id
}

func (t *Timeline) Self() string {
	return t.selfID
}

// RecordLocal validates and appends a freshly drawn action. The redo stack is
// discarded. Malformed actions are rejected and leave the timeline untouched.
func (t *Timeline) RecordLocal(a drawing.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	t.local = append(t.local, a.Clone())
	t.redo = nil
	t.version++
	return nil
}

// ReceiveRemote appends an action broadcast by another member. It reports
// false when the action originated from this client.
func (t *Timeline) ReceiveRemote(originID string, a drawing.Action) bool {
	if originID != "" && originID == t.selfID {
		return false
	}

	t.remote = append(t.remote, a.Clone())
	t.version++
	return true
}

// MergeSnapshot folds a server snapshot into remote. Existing remote entries
// keep their positions; snapshot actions not yet present are appended in
// snapshot order. Merging the same snapshot twice is a no-op.
func (t *Timeline) MergeSnapshot(actions []drawing.Action) {
	seen := make(map[string]struct{}, len(t.remote)+len(actions))
	for _, a := range t.remote {
		seen[a.Key()] = struct{}{}
	}

	changed := false
	for _, a := range actions {
		key := a.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		t.remote = append(t.remote, a.Clone())
		changed = true
	}

	if changed {
		t.version++
	}
}

// Undo moves the most recent local action onto the redo stack.
// Only this client's own actions are undoable.
func (t *Timeline) Undo() (drawing.Action, bool) {
	if len(t.local) == 0 {
		return drawing.Action{}, false
	}

	last := t.local[len(t.local)-1]
	t.local = t.local[:len(t.local)-1]
	t.redo = append(t.redo, last)
	t.version++
	return last.Clone(), true
}

// Redo moves the most recently undone action back to local. The caller is
// expected to re-send the returned action.
func (t *Timeline) Redo() (drawing.Action, bool) {
	if len(t.redo) == 0 {
		return drawing.Action{}, false
	}

	last := t.redo[len(t.redo)-1]
	t.redo = t.redo[:len(t.redo)-1]
	t.local = append(t.local, last)
	t.version++
	return last.Clone(), true
}

// ClearLocal empties local and the redo stack.
func (t *Timeline) ClearLocal() {
	if len(t.local) == 0 && len(t.redo) == 0 {
		return
	}
	t.local = nil
	t.redo = nil
	t.version++
}

// OnCanvasClear applies a room-wide clear: both buffers and the redo stack are
// emptied. An empty remote alone never clears local.
func (t *Timeline) OnCanvasClear() {
	t.remote = nil
	t.local = nil
	t.redo = nil
	t.version++
}

// Merged returns local ++ remote, keeping the first occurrence of each
// structurally equal action.
func (t *Timeline) Merged() []drawing.Action {
	merged := make([]drawing.Action, 0, len(t.local)+len(t.remote))
	seen := make(map[string]struct{}, len(t.local)+len(t.remote))

	for _, list := range [][]drawing.Action{t.local, t.remote} {
		for _, a := range list {
			key := a.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, a.Clone())
		}
	}
	return merged
}

// Unacknowledged returns local actions that do not appear in the given server
// snapshot, in local order.
func (t *Timeline) Unacknowledged(snapshot []drawing.Action) []drawing.Action {
	known := make(map[string]struct{}, len(snapshot))
	for _, a := range snapshot {
		known[a.Key()] = struct{}{}
	}

	var missing []drawing.Action
	for _, a := range t.local {
		if _, ok := known[a.Key()]; !ok {
			missing = append(missing, a.Clone())
		}
	}
	return missing
}

func (t *Timeline) Local() []drawing.Action  { return drawing.CloneAll(t.local) }
func (t *Timeline) Remote() []drawing.Action { return drawing.CloneAll(t.remote) }
func (t *Timeline) CanUndo() bool            { return len(t.local) > 0 }
func (t *Timeline) CanRedo() bool            { return len(t.redo) > 0 }

// Version increases on every mutation; renderers compare it to skip work.
func (t *Timeline) Version() uint64 { return t.version }
