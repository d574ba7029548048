package store

import "testing"

// view mirrors what a rendering component selects: one field plus two
// stable action funcs.
type view struct {
	Count int
	Inc   func()
	Dec   func()
}

type holder struct {
	s *Store[testState]
}

func (h *holder) Inc() { h.s.Set("increment", inc) }
func (h *holder) Dec() { h.s.Set("decrement", dec) }

func TestSelect_FiresOnlyOnSelectedChange(t *testing.T) {
	h := &holder{s: New(testState{})}

	var got []view
	unsub := Select(h.s, func(st testState) view {
		return view{Count: st.Count, Inc: h.Inc, Dec: h.Dec}
	}, func(next, prev view) {
		got = append(got, next)
	})
	defer unsub()

	// Unrelated field: no callback.
	h.s.Set("label", func(st testState) testState { st.Label = "x"; return st })
	if len(got) != 0 {
		t.Fatalf("callback fired %d times for an unrelated field", len(got))
	}

	h.Inc()
	h.Inc()
	h.Dec()

	if len(got) != 3 {
		t.Fatalf("callback fired %d times, want 3", len(got))
	}
	for i, want := range []int{1, 2, 1} {
		if got[i].Count != want {
			t.Errorf("got[%d].Count = %d, want %d", i, got[i].Count, want)
		}
	}
}

func TestSelect_PrevValue(t *testing.T) {
	s := New(testState{Count: 5})

	var pairs [][2]int
	Select(s, func(st testState) int { return st.Count }, func(next, prev int) {
		pairs = append(pairs, [2]int{prev, next})
	})

	s.Set("increment", inc)
	s.Set("decrement", dec)

	if len(pairs) != 2 || pairs[0] != [2]int{5, 6} || pairs[1] != [2]int{6, 5} {
		t.Errorf("pairs = %v, want [[5 6] [6 5]]", pairs)
	}
}

func TestSelect_FireImmediately(t *testing.T) {
	s := New(testState{Count: 3})

	calls := 0
	Select(s, func(st testState) int { return st.Count }, func(next, prev int) {
		calls++
		if next != 3 || prev != 3 {
			t.Errorf("immediate call = (%d, %d), want (3, 3)", next, prev)
		}
	}, FireImmediately[int]())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSelect_WithEqual(t *testing.T) {
	s := New(testState{})

	calls := 0
	// Only parity matters to this subscriber.
	Select(s, func(st testState) int { return st.Count }, func(int, int) {
		calls++
	}, WithEqual(func(a, b int) bool { return a%2 == b%2 }))

	s.Set("increment", inc) // 0 -> 1, parity changes
	s.Set("increment", func(st testState) testState { st.Count += 2; return st })
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSelect_Unsubscribe(t *testing.T) {
	s := New(testState{})

	calls := 0
	unsub := Select(s, func(st testState) int { return st.Count }, func(int, int) { calls++ })
	unsub()

	s.Set("increment", inc)
	if calls != 0 {
		t.Errorf("calls = %d after unsubscribe", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestSelect_SelectorPanicPropagatesOnSubscribe(t *testing.T) {
	s := New(testState{})
	defer func() {
		if recover() == nil {
			t.Error("expected selector panic to propagate")
		}
	}()
	defer func() {
		if s.Len() != 0 {
			t.Errorf("Len = %d after a failed Select, want 0", s.Len())
		}
	}()
	Select(s, func(testState) int { panic("bad selector") }, func(int, int) {})
}

func TestSelect_ChangeDuringFirstSelection(t *testing.T) {
	s := New(testState{})

	var calls [][2]int
	first := true
	unsub := Select(s, func(st testState) int {
		if first {
			first = false
			// Another goroutine commits while the first selection runs.
			done := make(chan struct{})
			go func() {
				s.Set("increment", inc)
				close(done)
			}()
			<-done
		}
		return st.Count
	}, func(next, prev int) {
		calls = append(calls, [2]int{next, prev})
	})
	defer unsub()

	if s.Get().Count != 1 {
		t.Fatalf("count = %d, want 1", s.Get().Count)
	}
	if len(calls) != 1 || calls[0] != [2]int{1, 0} {
		t.Fatalf("calls = %v, want [[1 0]]", calls)
	}

	s.Set("increment", inc)
	if len(calls) != 2 || calls[1] != [2]int{2, 1} {
		t.Errorf("calls = %v, want [[1 0] [2 1]]", calls)
	}
}

func TestSelect_ChangeDuringFirstSelectionFireImmediately(t *testing.T) {
	s := New(testState{Count: 5})

	var calls [][2]int
	first := true
	Select(s, func(st testState) int {
		if first {
			first = false
			done := make(chan struct{})
			go func() {
				s.Set("decrement", dec)
				close(done)
			}()
			<-done
		}
		return st.Count
	}, func(next, prev int) {
		calls = append(calls, [2]int{next, prev})
	}, FireImmediately[int]())

	want := [][2]int{{5, 5}, {4, 5}}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestSubscribe_SkipsTransitionsCommittedBefore(t *testing.T) {
	s := New(testState{})

	var late []int
	s.Subscribe(func(state, _ testState) {
		if state.Count == 1 {
			// Queued behind the current transition, committed before the
			// late subscriber exists.
			s.Set("increment", inc)
			s.Subscribe(func(state, _ testState) { late = append(late, state.Count) })
		}
	})

	s.Set("increment", inc)
	if s.Get().Count != 2 {
		t.Fatalf("count = %d, want 2", s.Get().Count)
	}
	if len(late) != 0 {
		t.Errorf("late subscriber saw %v, want nothing", late)
	}

	s.Set("increment", inc)
	if len(late) != 1 || late[0] != 3 {
		t.Errorf("late subscriber saw %v, want [3]", late)
	}
}
