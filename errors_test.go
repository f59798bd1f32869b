package rtb

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindIneligible, "Ineligible"},
		{KindNotReady, "NotReady"},
		{KindDeviceLost, "DeviceLost"},
		{KindFatal, "Fatal"},
		{KindReadback, "Readback"},
		{ErrorKind(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("driver reset")
	err := fmt.Errorf("frame 7: %w", newError(KindDeviceLost, "NotifyDrawCompleted", cause))

	if !errors.Is(err, ErrDeviceLost) {
		t.Error("errors.Is(err, ErrDeviceLost) = false, want true")
	}
	if errors.Is(err, ErrFatal) {
		t.Error("errors.Is(err, ErrFatal) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if !IsDeviceLost(err) {
		t.Error("IsDeviceLost(err) = false, want true")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("x"), KindUnknown},
		{"sentinel", ErrIneligible, KindIneligible},
		{"wrapped", fmt.Errorf("op: %w", newError(KindReadback, "read", nil)), KindReadback},
		{"closed", fmt.Errorf("submit: %w", ErrClosed), KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindFatal, "OnSetCurrentState", ErrInvalidTransition)
	want := "rtb: OnSetCurrentState: Fatal: rtb: invalid state transition"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if ErrIneligible.Error() != "rtb: Ineligible" {
		t.Errorf("ErrIneligible.Error() = %q", ErrIneligible.Error())
	}
}
