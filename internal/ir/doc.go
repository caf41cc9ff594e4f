// Package ir provides the data model shared by every hdlreplay package.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Bit ranges are half-open [Lo, Hi) over a registered endpoint width
//   - Endpoints and operands are opaque identities; shape inference happens elsewhere
//   - Node is a sealed union (BranchNode, SwitchNode, AssignNode)
//   - A Tree is frozen once handed out; nothing in this package mutates one
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing and golden files
package ir
