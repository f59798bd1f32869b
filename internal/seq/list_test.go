package seq

import (
	"slices"
	"testing"
)

func TestList_PushBackOrder(t *testing.T) {
	l := New[int]()
	for _, v := range []int{3, 1, 2} {
		if !l.PushBack(v) {
			t.Fatalf("PushBack(%d) = false, want true", v)
		}
	}

	if got := l.Snapshot(); !slices.Equal(got, []int{3, 1, 2}) {
		t.Errorf("Snapshot() = %v, want [3 1 2]", got)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestList_PushBackDuplicate(t *testing.T) {
	l := New[string]()
	l.PushBack("a")
	if l.PushBack("a") {
		t.Error("PushBack of duplicate should return false")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestList_Remove(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []int
	}{
		{"head", 1, []int{2, 3}},
		{"middle", 2, []int{1, 3}},
		{"tail", 3, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New[int]()
			l.PushBack(1)
			l.PushBack(2)
			l.PushBack(3)

			if !l.Remove(tt.remove) {
				t.Fatalf("Remove(%d) = false", tt.remove)
			}
			if got := l.Snapshot(); !slices.Equal(got, tt.want) {
				t.Errorf("Snapshot() = %v, want %v", got, tt.want)
			}
			if l.Contains(tt.remove) {
				t.Errorf("Contains(%d) = true after Remove", tt.remove)
			}
		})
	}
}

func TestList_RemoveMissing(t *testing.T) {
	l := New[int]()
	if l.Remove(7) {
		t.Error("Remove on empty list should return false")
	}
}

func TestList_FrontBackPrev(t *testing.T) {
	l := New[int]()
	if _, ok := l.Front(); ok {
		t.Error("Front() on empty list should report false")
	}
	l.PushBack(10)
	l.PushBack(20)

	if v, _ := l.Front(); v != 10 {
		t.Errorf("Front() = %d, want 10", v)
	}
	if v, _ := l.Back(); v != 20 {
		t.Errorf("Back() = %d, want 20", v)
	}
	if v, ok := l.Prev(20); !ok || v != 10 {
		t.Errorf("Prev(20) = %d, %v, want 10, true", v, ok)
	}
	if _, ok := l.Prev(10); ok {
		t.Error("Prev(head) should report false")
	}
	if _, ok := l.Prev(99); ok {
		t.Error("Prev(absent) should report false")
	}
}

func TestList_SnapshotIsolated(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)

	snap := l.Snapshot()
	l.Remove(1)
	l.PushBack(3)

	if !slices.Equal(snap, []int{1, 2}) {
		t.Errorf("snapshot changed to %v", snap)
	}
}

func TestList_Clear(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", l.Len())
	}
	if !l.PushBack(1) {
		t.Error("PushBack after Clear should succeed")
	}
}
