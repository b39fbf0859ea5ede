// Package ir provides the shared record types for the turtle grading engine.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Actions are immutable once constructed (args are copied on construction)
//   - Value is a sealed interface: only Number and Text implement it
//   - Tier values keep their historical numeric codes so reports stay comparable
//   - All JSON tags use snake_case
package ir
