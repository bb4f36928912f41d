/*
store.go - Ordered, insert-aware container for working segment collections

PURPOSE:
  The three working collections of a pipeline run (billable, payable,
  unworked) are ordered sequences that stages insert into mid-iteration.
  Sequence makes the one contract that keeps that safe explicit:

THE CURSOR CONTRACT:
  InsertAfter(i, seg) inserts seg immediately following position i and
  RETURNS THE INSERTED SEGMENT'S INDEX. Any loop that inserts while
  iterating MUST resume from the returned index (or deliberately past it),
  never from its own stale counter. Every historical defect in this
  subsystem was a cursor or count drifting out of sync with an insertion,
  so the index is returned by the container rather than recomputed by
  callers.

CONTIGUOUS ITERATION:
  ForEachContiguous walks the live sequence and re-reads the length on
  every step, so segments inserted during the walk are visited. The
  persistence stage uses this deliberately instead of a count captured
  up front.

SEE ALSO:
  - types.go: TimeSegment
  - pipeline: the stages that exercise this contract
*/
package segment

// Sequence is an ordered collection of segments supporting insertion at any
// position. The zero value is ready to use.
type Sequence struct {
	segs []*TimeSegment
}

func NewSequence(segs ...*TimeSegment) *Sequence {
	return &Sequence{segs: append([]*TimeSegment(nil), segs...)}
}

// Len is the authoritative count. It changes on every insert.
func (s *Sequence) Len() int { return len(s.segs) }

// At returns the segment at index i, or nil when i is out of range.
func (s *Sequence) At(i int) *TimeSegment {
	if i < 0 || i >= len(s.segs) {
		return nil
	}
	return s.segs[i]
}

// Last returns the final segment, or nil for an empty sequence.
func (s *Sequence) Last() *TimeSegment { return s.At(len(s.segs) - 1) }

// Append adds a segment at the end and returns its index.
func (s *Sequence) Append(seg *TimeSegment) int {
	s.segs = append(s.segs, seg)
	return len(s.segs) - 1
}

// InsertAfter inserts seg immediately following index i, shifting all
// subsequent segments, and returns the inserted segment's index. Passing
// i = -1 inserts at the front. The caller's loop cursor must advance using
// the returned index; see the package comment.
func (s *Sequence) InsertAfter(i int, seg *TimeSegment) int {
	at := i + 1
	if at < 0 {
		at = 0
	}
	if at > len(s.segs) {
		at = len(s.segs)
	}
	s.segs = append(s.segs, nil)
	copy(s.segs[at+1:], s.segs[at:])
	s.segs[at] = seg
	return at
}

// ForEachContiguous visits segments in order until the first absent slot,
// re-reading the live length each step so mid-walk insertions are seen.
// Returning a non-nil error stops the walk.
func (s *Sequence) ForEachContiguous(fn func(i int, seg *TimeSegment) error) error {
	for i := 0; i < len(s.segs); i++ {
		if s.segs[i] == nil {
			return nil
		}
		if err := fn(i, s.segs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Segments returns a copy of the backing slice. Mutating the returned slice
// does not affect the sequence; the segments themselves are shared.
func (s *Sequence) Segments() []*TimeSegment {
	return append([]*TimeSegment(nil), s.segs...)
}
