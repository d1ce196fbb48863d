// Package vp9lf implements the VP9 in-loop deblocking filter.
//
// The filter runs after reconstruction and smooths block and transform edges
// in place. Its strength comes from three derived structures:
//
//   - Tables: per-level edge, interior and flatness limits for a sharpness
//     setting, broadcast into SIMD-width lane rows.
//   - Levels: the effective filter level for every (segment, reference frame,
//     mode bucket) combination of a frame.
//   - Plan: a frame's resolved levels bound to the tables, ready to be applied
//     to the pixel planes.
//
// A Filter owns the tables for one decoder context and walks the state
// machine Uninitialized → TablesBuilt → LevelsResolved → Filtering → Done.
//
// Basic usage:
//
//	f, err := vp9lf.New()
//	plan, err := f.Prepare(vp9lf.LevelConfig{BaseLevel: 32, Sharpness: 0})
//	err = plan.Apply(frame, modeInfo)
//
// Filter parameters can be read straight from a VP9 uncompressed frame header
// with HeaderParser.
package vp9lf
