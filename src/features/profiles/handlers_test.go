package profiles

import "testing"

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 50, 101)
	if p.TotalPages != 3 {
		t.Errorf("expected 3 pages for 101 rows at 50/page, got %d", p.TotalPages)
	}

	// A zero or negative limit falls back to the default instead of dividing
	// by zero.
	p = NewPagination(1, 0, 10)
	if p.Limit != defaultPageLimit {
		t.Errorf("expected limit clamped to %d, got %d", defaultPageLimit, p.Limit)
	}
	if p.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", p.TotalPages)
	}

	p = NewPagination(-3, -1, 0)
	if p.Page != 1 || p.Limit != defaultPageLimit {
		t.Errorf("expected page and limit clamped, got page=%d limit=%d", p.Page, p.Limit)
	}
	if p.TotalPages != 0 {
		t.Errorf("expected 0 pages for 0 rows, got %d", p.TotalPages)
	}
}
