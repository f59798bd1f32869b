// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Provider supplies the host application's GPU device.
//
// The host owns the device; rtb only borrows it. HAL additionally needs
// the provider to expose HalDevice() any and HalQueue() any.
type Provider = gpucontext.DeviceProvider

// surfaceFormat returns the provider's surface format, or RGBA8 when the
// provider does not have one.
func surfaceFormat(p Provider) gputypes.TextureFormat {
	if p == nil {
		return gputypes.TextureFormatRGBA8Unorm
	}
	if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		return f
	}
	return gputypes.TextureFormatRGBA8Unorm
}
