// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device provides the devices and surfaces behind rtb captures.
//
// # Devices
//
// A device implements rtb.Device: it hands out completion handles that fire
// once the work submitted so far has finished, commits a frame's work and
// reports loss.
//
//   - Software: CPU device. Capture jobs queued during a frame run on
//     Commit. Loss can be simulated with Lose and Restore.
//   - HAL: GPU device from a gpucontext.DeviceProvider exposing wgpu HAL
//     types. Completion handles track queue submission indices; readbacks
//     map staging buffers. Not available with the nogpu build tag.
//
// Devices register themselves in a priority Registry; Open picks the best
// one that can be created with the given Options.
//
// # Surfaces
//
// MemorySurface is a CPU-backed rtb.ByteSurface. ReadbackSurface wraps a
// HAL staging buffer.
//
// # Capture
//
// SoftwareCapturer records Painter visuals into MemorySurfaces, scaled to
// the requested pixel size.
package device
