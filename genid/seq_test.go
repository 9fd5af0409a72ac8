package genid

import (
	"math/rand"
	"testing"
)

func TestSeqLifecycle(t *testing.T) {
	cases := []struct {
		name        string
		insert      int
		removeIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_remove_middle", 3, 1},
		{"none_removed", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var s Seq[string]
			ids := make([]ID, 0, c.insert)
			for i := 0; i < c.insert; i++ {
				ids = append(ids, s.Insert(string(rune('a'+i))))
			}
			if s.Len() != c.insert {
				t.Fatalf("expected %d values, got %d", c.insert, s.Len())
			}
			for i, id := range ids {
				v, ok := s.Get(id)
				if !ok || v != string(rune('a'+i)) {
					t.Fatalf("get %v: got %q ok=%v", id, v, ok)
				}
			}
			if c.removeIndex < 0 {
				return
			}
			removed := ids[c.removeIndex]
			if _, ok := s.Remove(removed); !ok {
				t.Fatalf("Remove should succeed for live id")
			}
			if s.Contains(removed) {
				t.Fatalf("id should be invalid after removal")
			}
			if _, ok := s.Remove(removed); ok {
				t.Fatalf("second Remove should fail")
			}
			if s.Len() != c.insert-1 {
				t.Fatalf("expected %d values, got %d", c.insert-1, s.Len())
			}
		})
	}
}

func TestSeqSlotReuse(t *testing.T) {
	var s Seq[int]
	old := s.Insert(1)
	s.Insert(2)
	if _, ok := s.Remove(old); !ok {
		t.Fatalf("remove failed")
	}
	fresh := s.Insert(3)
	if fresh.Index != old.Index {
		t.Fatalf("expected slot %d to be reused, got %d", old.Index, fresh.Index)
	}
	if fresh.Gen == old.Gen {
		t.Fatalf("reused slot kept generation %d", fresh.Gen)
	}
	if _, ok := s.Get(old); ok {
		t.Fatalf("stale id resolved after reuse")
	}
	if p := s.Ptr(old); p != nil {
		t.Fatalf("stale id returned pointer")
	}
	if v, ok := s.Get(fresh); !ok || v != 3 {
		t.Fatalf("expected 3, got %d ok=%v", v, ok)
	}
}

func TestSeqLookupFailures(t *testing.T) {
	var s Seq[int]
	id := s.Insert(7)

	tests := []struct {
		name string
		id   ID
	}{
		{"zero_id", ID{}},
		{"negative_index", ID{Index: -1, Gen: id.Gen}},
		{"out_of_range", ID{Index: 10, Gen: id.Gen}},
		{"wrong_generation", ID{Index: id.Index, Gen: id.Gen + 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := s.Get(tc.id); ok {
				t.Fatalf("Get(%v) should fail", tc.id)
			}
			if _, ok := s.Remove(tc.id); ok {
				t.Fatalf("Remove(%v) should fail", tc.id)
			}
		})
	}
}

func TestSeqPtrMutates(t *testing.T) {
	var s Seq[int]
	id := s.Insert(1)
	*s.Ptr(id) = 5
	if v, _ := s.Get(id); v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
}

func TestSeqRetiredSlot(t *testing.T) {
	var s Seq[int]
	id := s.Insert(1)
	s.slots[id.Index].gen = retired - 1
	id.Gen = retired - 1
	if _, ok := s.Remove(id); !ok {
		t.Fatalf("remove failed")
	}
	next := s.Insert(2)
	if next.Index == id.Index {
		t.Fatalf("retired slot was reused")
	}
}

func TestSeqGenerationSafety(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var s Seq[int]
	live := map[ID]int{}
	var dead []ID

	for step := 0; step < 2000; step++ {
		if len(live) == 0 || rng.Intn(3) > 0 {
			id := s.Insert(step)
			live[id] = step
			continue
		}
		for id := range live {
			if _, ok := s.Remove(id); !ok {
				t.Fatalf("step %d: remove of live id %v failed", step, id)
			}
			delete(live, id)
			dead = append(dead, id)
			break
		}
	}

	for id, want := range live {
		if got, ok := s.Get(id); !ok || got != want {
			t.Fatalf("live id %v: got %d ok=%v want %d", id, got, ok, want)
		}
	}
	for _, id := range dead {
		if _, ok := s.Get(id); ok {
			t.Fatalf("dead id %v still resolves", id)
		}
	}
	if s.Len() != len(live) {
		t.Fatalf("Len %d, expected %d", s.Len(), len(live))
	}
	n := 0
	for range s.All() {
		n++
	}
	if n != len(live) {
		t.Fatalf("All yielded %d, expected %d", n, len(live))
	}
}

func TestSeqClear(t *testing.T) {
	var s Seq[int]
	a := s.Insert(1)
	b := s.Insert(2)
	s.Clear()
	if s.Len() != 0 || s.Contains(a) || s.Contains(b) {
		t.Fatalf("clear left values behind")
	}
}

func TestIDString(t *testing.T) {
	if got := (ID{Index: 3, Gen: 2}).String(); got != "3:2" {
		t.Fatalf("unexpected %q", got)
	}
	if !(ID{}).IsZero() {
		t.Fatalf("zero id should report IsZero")
	}
}
