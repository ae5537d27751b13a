// Package model provides the record types shared by every blogstore layer.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - Every entity carries an int64 id, unique within its collection and
//     assigned once at creation (zero means "not yet assigned")
//   - Decoded entities never carry nil slices; Normalize fills the defaults
//   - JSON tags match the documents written by backup exports
//   - Event timestamps are instants; all bucketing happens in UTC
package model
