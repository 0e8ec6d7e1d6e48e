// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := NewFake()
	ch := fake.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	fake.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired 1s early")
	default:
	}

	fake.Advance(time.Second)
	select {
	case firedAt := <-ch:
		want := NewFake().Now().Add(5 * time.Second)
		if !firedAt.Equal(want) {
			t.Errorf("fired at %v, want %v", firedAt, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeTickerDeliversOneTickPerInterval(t *testing.T) {
	fake := NewFake()
	ticker := fake.NewTicker(2 * time.Second)
	defer ticker.Stop()

	fake.Advance(2 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("no tick after one interval")
	}

	// Two intervals with nobody reading: the buffered channel holds one
	// tick and the second is dropped.
	fake.Advance(4 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("dropped tick was queued")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := NewFake()
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()
	fake.Advance(10 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker ticked")
	default:
	}
}

func TestFakeAfterFuncRunsAndStops(t *testing.T) {
	fake := NewFake()

	ran := false
	fake.AfterFunc(time.Second, func() { ran = true })

	stopped := fake.AfterFunc(time.Second, func() { t.Error("stopped AfterFunc ran") })
	if !stopped.Stop() {
		t.Error("Stop on pending timer returned false")
	}
	if stopped.Stop() {
		t.Error("second Stop returned true")
	}

	fake.Advance(time.Second)
	if !ran {
		t.Error("AfterFunc did not run at its deadline")
	}
}

func TestFakeEventsFireInChronologicalOrder(t *testing.T) {
	fake := NewFake()

	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	fake.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("fire order = %v, want [1 2 3]", order)
	}
}
