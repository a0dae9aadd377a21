package geometry

import "testing"

func TestDefaultSweeps(t *testing.T) {
	pre := DefaultPreSweep()
	if pre.Len() != 20 {
		t.Fatalf("pre sweep len = %d, want 20", pre.Len())
	}
	volts := pre.Voltages()
	if volts[0] != 5000 || volts[len(volts)-1] != 6900 {
		t.Fatalf("unexpected pre sweep bounds: %v", volts)
	}
	post := DefaultPostSweep()
	if post.Len() != 30 {
		t.Fatalf("post sweep len = %d, want 30", post.Len())
	}
}

func TestSweepStopIsExclusive(t *testing.T) {
	s := Sweep{Start: 100, Stop: 350, Step: 100}
	got := s.Voltages()
	want := []int{100, 200, 300}
	if len(got) != len(want) {
		t.Fatalf("voltages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("voltages = %v, want %v", got, want)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	if !s.Contains(300) || s.Contains(350) || s.Contains(150) {
		t.Fatal("Contains returned unexpected result")
	}
}

func TestSweepValidate(t *testing.T) {
	cases := []struct {
		name  string
		sweep Sweep
		ok    bool
	}{
		{"default", DefaultPreSweep(), true},
		{"zero start", Sweep{Start: 0, Stop: 500, Step: 100}, false},
		{"zero step", Sweep{Start: 100, Stop: 500, Step: 0}, false},
		{"stop before start", Sweep{Start: 500, Stop: 500, Step: 100}, false},
	}
	for _, tc := range cases {
		err := tc.sweep.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
