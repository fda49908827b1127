package main

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	fired := make(chan string, 4)
	d := newDebouncer(30*time.Millisecond, func(path string) {
		calls.Add(1)
		fired <- path
	})

	for i := 0; i < 5; i++ {
		d.trigger("a.lir")
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case path := <-fired:
		if path != "a.lir" {
			t.Errorf("got %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("the debounced callback never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one call for a burst, got %d", n)
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := newDebouncer(20*time.Millisecond, func(string) { calls.Add(1) })
	d.trigger("a.lir")
	d.trigger("b.lir")
	d.stop()
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("stopped debouncer fired %d time(s)", n)
	}
}
