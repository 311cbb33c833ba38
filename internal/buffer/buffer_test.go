package buffer

import (
	"reflect"
	"testing"
)

func TestNewRejectsEmpty(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := New(c); err == nil {
			t.Errorf("New(%d) should fail", c)
		}
	}
}

func TestPushFullSignal(t *testing.T) {
	tests := []struct {
		capacity int
		pushes   int
	}{
		{capacity: 1, pushes: 5},
		{capacity: 4, pushes: 13},
		{capacity: 7, pushes: 21},
		{capacity: DefaultCapacity, pushes: 3 * DefaultCapacity},
	}

	for _, test := range tests {
		buf, err := New(test.capacity)
		if err != nil {
			t.Fatal(err)
		}
		var pending []int16
		for i := 1; i <= test.pushes; i++ {
			s := int16(i)
			pending = append(pending, s)
			full := buf.Push(s)
			if want := i%test.capacity == 0; full != want {
				t.Fatalf("cap %d push %d: full = %v, want %v", test.capacity, i, full, want)
			}
			if full {
				if got := buf.Drain(); !reflect.DeepEqual(got, pending) {
					t.Fatalf("cap %d push %d: drained %v, want %v", test.capacity, i, got, pending)
				}
				pending = nil
			}
		}
		rest := buf.Drain()
		if len(rest) != len(pending) || (len(rest) > 0 && !reflect.DeepEqual(rest, pending)) {
			t.Errorf("cap %d: partial drain %v, want %v", test.capacity, rest, pending)
		}
	}
}

func TestDrainResets(t *testing.T) {
	buf, _ := New(3)
	buf.Push(1)
	buf.Push(2)
	if buf.Len() != 2 || buf.Cap() != 3 {
		t.Fatalf("len %d cap %d", buf.Len(), buf.Cap())
	}
	if got := buf.Drain(); !reflect.DeepEqual(got, []int16{1, 2}) {
		t.Fatalf("drain = %v", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("len after drain = %d", buf.Len())
	}
	if got := buf.Drain(); len(got) != 0 {
		t.Fatalf("second drain = %v", got)
	}
}

func TestPushIntoFullPanics(t *testing.T) {
	buf, _ := New(1)
	buf.Push(1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	buf.Push(2)
}
