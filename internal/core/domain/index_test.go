package domain

import "testing"

func TestMakeIndexEntry(t *testing.T) {
	e := MakeIndexEntry("abc123", false, 1000)
	if e.Hash != "abc123" || e.Deleted || e.LastUpdateTime != 1000 {
		t.Errorf("MakeIndexEntry() = %+v, unexpected", e)
	}
}

func TestShard_LiveCount(t *testing.T) {
	s := Shard{
		"t1": {Hash: "h1", Deleted: false},
		"t2": {Hash: "h2", Deleted: true},
		"t3": {Hash: "h3", Deleted: false},
	}
	if got := s.LiveCount(); got != 2 {
		t.Errorf("LiveCount() = %d, want 2", got)
	}
}
