package world

import "testing"

func TestSchedulerFiresInTickOrder(t *testing.T) {
	var s editScheduler
	c := ChunkCoord{}
	s.schedule(5, c, [3]int{0, 0, 5}, 1, "a")
	s.schedule(3, c, [3]int{0, 0, 3}, 1, "b")
	s.schedule(10, c, [3]int{0, 0, 10}, 1, "c")

	due := s.due(4)
	if len(due) != 1 || due[0].fire != 3 {
		t.Fatalf("due(4) = %+v, want the tick-3 edit only", due)
	}
	due = s.due(10)
	if len(due) != 2 || due[0].fire != 5 || due[1].fire != 10 {
		t.Fatalf("due(10) returned out of order: %+v", due)
	}
	if s.pending() != 0 {
		t.Fatalf("queue should be drained, %d left", s.pending())
	}
}

func TestSchedulerTiesKeepScheduleOrder(t *testing.T) {
	var s editScheduler
	c := ChunkCoord{}
	for i := 0; i < 5; i++ {
		s.schedule(7, c, [3]int{i, 0, 0}, 1, "tie")
	}
	due := s.due(7)
	if len(due) != 5 {
		t.Fatalf("want 5 due edits, got %d", len(due))
	}
	for i, ed := range due {
		if ed.pos[0] != i {
			t.Fatalf("tie order broken at %d: %+v", i, ed)
		}
	}
}

func TestSchedulerEmptyDue(t *testing.T) {
	var s editScheduler
	if due := s.due(100); len(due) != 0 {
		t.Fatalf("empty scheduler produced edits: %+v", due)
	}
	s.schedule(50, ChunkCoord{}, [3]int{1, 2, 3}, 9, "later")
	if due := s.due(49); len(due) != 0 {
		t.Fatalf("edit fired early: %+v", due)
	}
	if s.pending() != 1 {
		t.Fatalf("pending = %d, want 1", s.pending())
	}
}
