package dbtypes

import "testing"

func TestStringListScan(t *testing.T) {
	var l StringList
	if err := l.Scan([]byte(`["https://cdn/a.jpg","https://cdn/b.jpg"]`)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(l) != 2 || l[1] != "https://cdn/b.jpg" {
		t.Fatalf("unexpected list %v", l)
	}

	if err := l.Scan(nil); err != nil || len(l) != 0 {
		t.Fatalf("expected nil to scan into empty list, got %v err=%v", l, err)
	}
	if err := l.Scan(42); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if err := l.Scan("not json"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestStringListValue(t *testing.T) {
	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected empty array literal, got %v err=%v", v, err)
	}
	v, err = StringList{"Black", "White"}.Value()
	if err != nil || v != `["Black","White"]` {
		t.Fatalf("unexpected value %v err=%v", v, err)
	}
}
