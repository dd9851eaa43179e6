package mcp

import "testing"

func newStringSet(items ...string) *featureSet[string] {
	s := newFeatureSet(func(x string) string { return x })
	s.add(items...)
	return s
}

func TestFeatureSetAddGetRemove(t *testing.T) {
	s := newStringSet("b", "a", "c")
	if s.len() != 3 {
		t.Fatalf("len = %d, want 3", s.len())
	}
	if _, ok := s.get("a"); !ok {
		t.Error("expected to find a")
	}
	if !s.remove("a") {
		t.Error("remove(a) should report a change")
	}
	if s.remove("a") {
		t.Error("removing an already-absent key should report no change")
	}
	if s.len() != 2 {
		t.Fatalf("len after remove = %d, want 2", s.len())
	}
}

func TestFeatureSetAllIsSorted(t *testing.T) {
	s := newStringSet("c", "a", "b")
	var got []string
	for v := range s.all() {
		got = append(got, v)
	}
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("all() = %v, want %v", got, want)
		}
	}
}

func TestFeatureSetPagination(t *testing.T) {
	s := newStringSet("a", "b", "c", "d", "e")

	page1, cursor1 := s.page("", 2)
	if len(page1) != 2 || page1[0] != "a" || page1[1] != "b" {
		t.Fatalf("page1 = %v", page1)
	}
	if cursor1 != "b" {
		t.Fatalf("cursor1 = %q, want b", cursor1)
	}

	page2, cursor2 := s.page(cursor1, 2)
	if len(page2) != 2 || page2[0] != "c" || page2[1] != "d" {
		t.Fatalf("page2 = %v", page2)
	}
	if cursor2 != "d" {
		t.Fatalf("cursor2 = %q, want d", cursor2)
	}

	page3, cursor3 := s.page(cursor2, 2)
	if len(page3) != 1 || page3[0] != "e" {
		t.Fatalf("page3 = %v", page3)
	}
	if cursor3 != "" {
		t.Fatalf("cursor3 = %q, want empty (exhausted)", cursor3)
	}
}

func TestFeatureSetPageSizeZeroReturnsEverything(t *testing.T) {
	s := newStringSet("a", "b", "c")
	items, cursor := s.page("", 0)
	if len(items) != 3 {
		t.Fatalf("items = %v, want all 3", items)
	}
	if cursor != "" {
		t.Fatalf("cursor = %q, want empty", cursor)
	}
}
