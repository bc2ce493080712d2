package relational

import "context"

// SliceRows is a RowIterator over rows held in memory.
type SliceRows struct {
	rows []map[string]any
	pos  int
	err  error
}

// NewSliceRows iterates rows in order.
func NewSliceRows(rows []map[string]any) *SliceRows {
	return &SliceRows{rows: rows, pos: -1}
}

func (s *SliceRows) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if s.pos+1 >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceRows) Row() map[string]any {
	if s.pos < 0 || s.pos >= len(s.rows) {
		return nil
	}
	return s.rows[s.pos]
}

func (s *SliceRows) Err() error   { return s.err }
func (s *SliceRows) Close() error { return nil }
