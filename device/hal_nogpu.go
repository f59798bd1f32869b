//go:build nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "fmt"

// HAL is unavailable in nogpu builds.
type HAL struct{}

// NewHAL always fails in nogpu builds.
func NewHAL(Provider) (*HAL, error) {
	return nil, fmt.Errorf("%w: built with nogpu", ErrUnavailable)
}
