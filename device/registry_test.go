// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/rtb"
)

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	open := func(Options) (rtb.Device, error) { return NewSoftware(), nil }
	r.Register("low", 10, open)
	r.Register("high", 100, open)
	r.Register("mid-b", 50, open)
	r.Register("mid-a", 50, open)

	want := []string{"high", "mid-a", "mid-b", "low"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names = %v, want %v", got, want)
		}
	}

	r.Unregister("high")
	if got := r.Names(); got[0] != "mid-a" {
		t.Errorf("after Unregister Names = %v", got)
	}
}

func TestRegistryOpenSkipsUnavailable(t *testing.T) {
	r := NewRegistry()
	sw := NewSoftware()
	r.Register("gpu", 100, func(Options) (rtb.Device, error) {
		return nil, fmt.Errorf("%w: no adapter", ErrUnavailable)
	})
	r.Register("cpu", 10, func(Options) (rtb.Device, error) { return sw, nil })

	d, err := r.Open(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if d != sw {
		t.Error("Open did not fall back to the available backend")
	}
}

func TestRegistryOpenStopsOnHardError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register("gpu", 100, func(Options) (rtb.Device, error) { return nil, boom })
	r.Register("cpu", 10, func(Options) (rtb.Device, error) { return NewSoftware(), nil })

	if _, err := r.Open(Options{}); !errors.Is(err, boom) {
		t.Errorf("Open = %v, want boom", err)
	}
}

func TestRegistryEmptyAndUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Open(Options{}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Open on empty registry = %v, want ErrNoBackend", err)
	}
	if _, err := r.OpenByName("nope", Options{}); err == nil {
		t.Error("OpenByName(unknown) succeeded")
	}
}

func TestGlobalRegistryOpensSoftwareWithoutProvider(t *testing.T) {
	d, err := Open(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*Software); !ok {
		t.Errorf("Open() = %T, want *Software", d)
	}
	found := false
	for _, n := range Backends() {
		if n == "software" {
			found = true
		}
	}
	if !found {
		t.Errorf("Backends = %v, missing software", Backends())
	}
}
