package game

import "testing"

func TestStore(t *testing.T) {
	s := NewStore[int]()
	s.Set(3, 30)
	s.Set(1, 10)
	s.Set(2, 20)
	s.Set(1, 11)

	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	if v, ok := s.Get(1); !ok || v != 11 {
		t.Errorf("Get(1) = %v, %v", v, ok)
	}

	want := []EntityID{3, 1, 2}
	for i, id := range s.Entities() {
		if id != want[i] {
			t.Errorf("insertion order = %v, want %v", s.Entities(), want)
			break
		}
	}
	sorted := s.SortedEntities()
	if sorted[0] != 1 || sorted[1] != 2 || sorted[2] != 3 {
		t.Errorf("sorted = %v", sorted)
	}

	s.Remove(1)
	s.Remove(42)
	if s.Has(1) || s.Len() != 2 {
		t.Errorf("remove failed: has=%v len=%d", s.Has(1), s.Len())
	}
	if e := s.Entities(); e[0] != 3 || e[1] != 2 {
		t.Errorf("order after remove = %v", e)
	}

	s.Clear()
	if s.Len() != 0 || s.Has(3) {
		t.Error("clear left entries behind")
	}
}

// TestStoreRemoveWhileRanging verifies Entities returns a stable copy
func TestStoreRemoveWhileRanging(t *testing.T) {
	s := NewStore[string]()
	for i := EntityID(1); i <= 5; i++ {
		s.Set(i, "x")
	}
	seen := 0
	for _, id := range s.Entities() {
		seen++
		s.Remove(id)
	}
	if seen != 5 || s.Len() != 0 {
		t.Errorf("seen %d, remaining %d", seen, s.Len())
	}
}
