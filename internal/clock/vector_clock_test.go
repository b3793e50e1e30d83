package clock

import (
	"testing"
)

func TestIncrement(t *testing.T) {
	clock := NewVectorClock()
	clock = Increment(clock, "actor1")
	if clock["actor1"] != 1 {
		t.Errorf("Expected 1, got %d", clock["actor1"])
	}
	clock = Increment(clock, "actor1")
	if clock["actor1"] != 2 {
		t.Errorf("Expected 2, got %d", clock["actor1"])
	}
}

func TestIncrementNil(t *testing.T) {
	var clock VectorClock
	clock = Increment(clock, "actor1")
	if clock["actor1"] != 1 {
		t.Errorf("Expected 1, got %d", clock["actor1"])
	}
}

func TestMerge(t *testing.T) {
	clock1 := VectorClock{"a": 1, "b": 2}
	clock2 := VectorClock{"a": 3, "c": 4}
	merged := Merge(clock1, clock2)
	if merged["a"] != 3 || merged["b"] != 2 || merged["c"] != 4 {
		t.Errorf("Merge failed: %v", merged)
	}
}

func TestCompare(t *testing.T) {
	clock1 := VectorClock{"a": 1, "b": 2}
	clock2 := VectorClock{"a": 1, "b": 2}
	if Compare(clock1, clock2) != Equal {
		t.Error("Expected Equal")
	}

	clock3 := VectorClock{"a": 2, "b": 2}
	if Compare(clock1, clock3) != Before {
		t.Error("Expected Before")
	}

	clock4 := VectorClock{"a": 0, "b": 2}
	if Compare(clock1, clock4) != After {
		t.Error("Expected After")
	}

	clock5 := VectorClock{"a": 2, "b": 1}
	if Compare(clock1, clock5) != Concurrent {
		t.Error("Expected Concurrent")
	}
}

func TestCompareMissingActors(t *testing.T) {
	empty := NewVectorClock()
	clock := VectorClock{"a": 1}
	if Compare(empty, clock) != Before {
		t.Error("Empty clock should be before any non-empty clock")
	}
	if Compare(clock, empty) != After {
		t.Error("Non-empty clock should be after the empty clock")
	}
	if Compare(empty, NewVectorClock()) != Equal {
		t.Error("Two empty clocks should be equal")
	}
}

func TestDominates(t *testing.T) {
	clock1 := VectorClock{"a": 2, "b": 2}
	clock2 := VectorClock{"a": 1, "b": 2}
	if !Dominates(clock1, clock2) {
		t.Error("Expected clock1 to dominate clock2")
	}
	if Dominates(clock2, clock1) {
		t.Error("clock2 should not dominate clock1")
	}
	if Dominates(clock1, clock1) {
		t.Error("A clock should not strictly dominate itself")
	}
}

func TestIsConcurrent(t *testing.T) {
	clock1 := VectorClock{"a": 1}
	clock2 := VectorClock{"b": 1}
	if !IsConcurrent(clock1, clock2) {
		t.Error("Disjoint clocks should be concurrent")
	}
	if IsConcurrent(clock1, clock1) {
		t.Error("A clock is not concurrent with itself")
	}
	clock3 := VectorClock{"a": 1, "b": 1}
	if IsConcurrent(clock1, clock3) {
		t.Error("Dominated clocks are not concurrent")
	}
}

func TestDot(t *testing.T) {
	clock := VectorClock{"a": 3}
	d := clock.Dot("a")
	if d.Actor != "a" || d.Counter != 3 {
		t.Errorf("Unexpected dot: %v", d)
	}
	absent := clock.Dot("b")
	if absent.Counter != 0 {
		t.Errorf("Dot of absent actor should have counter 0, got %d", absent.Counter)
	}
}

func TestSeen(t *testing.T) {
	clock := VectorClock{"a": 3}
	if !clock.Seen(Dot{Actor: "a", Counter: 2}) {
		t.Error("Expected dot (a,2) to be seen")
	}
	if !clock.Seen(Dot{Actor: "a", Counter: 3}) {
		t.Error("Expected dot (a,3) to be seen")
	}
	if clock.Seen(Dot{Actor: "a", Counter: 4}) {
		t.Error("Dot (a,4) should not be seen")
	}
	if clock.Seen(Dot{Actor: "b", Counter: 1}) {
		t.Error("Dot of unknown actor should not be seen")
	}
}

func TestApply(t *testing.T) {
	clock := NewVectorClock()
	clock.Apply(Dot{Actor: "a", Counter: 2})
	if clock["a"] != 2 {
		t.Errorf("Expected 2, got %d", clock["a"])
	}
	clock.Apply(Dot{Actor: "a", Counter: 1})
	if clock["a"] != 2 {
		t.Error("Apply should never lower a counter")
	}
}

func TestActors(t *testing.T) {
	clock := VectorClock{"c": 1, "a": 2, "b": 3}
	actors := clock.Actors()
	if len(actors) != 3 || actors[0] != "a" || actors[1] != "b" || actors[2] != "c" {
		t.Errorf("Actors not sorted: %v", actors)
	}
}

func TestClone(t *testing.T) {
	clock := VectorClock{"a": 1, "b": 2}
	cloned := Clone(clock)
	if cloned["a"] != 1 || cloned["b"] != 2 {
		t.Errorf("Clone failed: %v", cloned)
	}
	cloned["a"] = 3
	if clock["a"] != 1 {
		t.Error("Clone should be independent")
	}
}

func TestCloneNil(t *testing.T) {
	var clock VectorClock
	cloned := Clone(clock)
	if cloned != nil {
		t.Error("Clone of nil should be nil")
	}
}
