/*
store_test.go - Sequence cursor contract tests

PURPOSE:
  These tests document the one contract that keeps mid-iteration
  insertion safe: InsertAfter returns the inserted index and the caller
  resumes from it. Every assertion here guards against the cursor/count
  desynchronization class of defect.
*/
package segment

import (
	"testing"
	"time"
)

func seg(id string) *TimeSegment {
	return &TimeSegment{ID: id}
}

func TestInsertAfterReturnsInsertedIndex(t *testing.T) {
	// GIVEN a sequence of three segments
	s := NewSequence(seg("a"), seg("b"), seg("c"))

	// WHEN inserting after the first
	got := s.InsertAfter(0, seg("x"))

	// THEN the returned index addresses the inserted segment
	if got != 1 {
		t.Fatalf("InsertAfter returned %d, want 1", got)
	}
	if s.At(got).ID != "x" {
		t.Fatalf("segment at returned index is %q, want x", s.At(got).ID)
	}
	if s.Len() != 4 {
		t.Fatalf("Len = %d, want 4", s.Len())
	}

	// AND the subsequent segments shifted right intact
	want := []string{"a", "x", "b", "c"}
	for i, w := range want {
		if s.At(i).ID != w {
			t.Errorf("At(%d) = %q, want %q", i, s.At(i).ID, w)
		}
	}
}

func TestInsertAfterFrontAndEnd(t *testing.T) {
	s := NewSequence(seg("a"))

	// Inserting after -1 lands at the front.
	if got := s.InsertAfter(-1, seg("front")); got != 0 {
		t.Fatalf("front insert index = %d, want 0", got)
	}
	// Inserting after the last index appends.
	if got := s.InsertAfter(s.Len()-1, seg("end")); got != s.Len()-1 {
		t.Fatalf("end insert index = %d, want %d", got, s.Len()-1)
	}
	if s.Last().ID != "end" {
		t.Fatalf("Last = %q, want end", s.Last().ID)
	}
}

func TestCursorResumeSkipsInsertedSegment(t *testing.T) {
	// GIVEN a loop that inserts while iterating and resumes from the
	// returned index, the inserted segment is never re-visited.
	s := NewSequence(seg("a"), seg("b"))

	var visited []string
	for i := 0; i < s.Len(); i++ {
		cur := s.At(i)
		visited = append(visited, cur.ID)
		if cur.ID == "a" {
			i = s.InsertAfter(i, seg("pad")) // resume past the insertion
		}
	}

	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Fatalf("visited %v, want [a b]", visited)
	}
}

func TestForEachContiguousSeesMidWalkInsertions(t *testing.T) {
	// GIVEN a walk that appends while iterating
	s := NewSequence(seg("a"), seg("b"))

	var visited []string
	appended := false
	err := s.ForEachContiguous(func(i int, sg *TimeSegment) error {
		visited = append(visited, sg.ID)
		if !appended {
			s.Append(seg("late"))
			appended = true
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// THEN the live length is re-read and the appended segment is visited
	if len(visited) != 3 || visited[2] != "late" {
		t.Fatalf("visited %v, want the appended segment last", visited)
	}
}

func TestAtOutOfRangeIsNil(t *testing.T) {
	s := NewSequence(seg("a"))
	if s.At(-1) != nil || s.At(1) != nil {
		t.Fatal("At out of range must return nil")
	}
	if NewSequence().Last() != nil {
		t.Fatal("Last of empty sequence must return nil")
	}
}

// =============================================================================
// TIME HELPERS
// =============================================================================

func TestClockTimeRoundTrip(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	at := day.Add(22*time.Hour + 30*time.Minute)

	c := ClockOf(at)
	if c.String() != "22:30:00" {
		t.Fatalf("ClockOf = %s, want 22:30:00", c)
	}
	if !c.At(day).Equal(at) {
		t.Fatalf("At(day) = %v, want %v", c.At(day), at)
	}
}

func TestNextMidnightAndDay(t *testing.T) {
	at := time.Date(2026, time.March, 2, 23, 59, 0, 0, time.UTC)
	next := NextMidnight(at)
	want := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("NextMidnight = %v, want %v", next, want)
	}
	if !SameDay(at, Day(at)) {
		t.Fatal("Day must stay on the same calendar day")
	}
}

func TestStartOfWeek(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	wed := time.Date(2026, time.March, 4, 15, 0, 0, 0, time.UTC)

	monday := StartOfWeek(wed, time.Monday)
	if !monday.Equal(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartOfWeek Monday = %v", monday)
	}

	// A week starting on its own weekday maps to that midnight.
	sameDay := StartOfWeek(wed, time.Wednesday)
	if !sameDay.Equal(Day(wed)) {
		t.Fatalf("StartOfWeek Wednesday = %v, want %v", sameDay, Day(wed))
	}
}

func TestHoursOfDurationOf(t *testing.T) {
	h := HoursOf(90 * time.Minute)
	if h.String() != "1.5" {
		t.Fatalf("HoursOf(90m) = %s, want 1.5", h)
	}
	if DurationOf(h) != 90*time.Minute {
		t.Fatalf("DurationOf(1.5) = %v, want 90m", DurationOf(h))
	}
}

func TestUnworkedHoursAreCredited(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	s := &TimeSegment{
		Role:          RoleUnworked,
		InAt:          day,
		OutAt:         day, // zero span
		CreditedHours: HoursOf(3 * time.Hour),
	}
	if s.Hours().String() != "3" {
		t.Fatalf("unworked Hours = %s, want 3", s.Hours())
	}
}
