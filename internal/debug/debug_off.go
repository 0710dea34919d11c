//go:build !debug

// Package debug provides categorized trace logging for the sync engine.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	ENGINE     Category = "ENGINE"
	SCAN       Category = "SCAN"
	STORE      Category = "STORE"
	ACCESS     Category = "ACCESS"
	WATCH      Category = "WATCH"
	HISTORY    Category = "HISTORY"
	CLI        Category = "CLI"
	SCAN_ENTRY Category = "SCAN_ENTRY"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }

// ListEnabled returns nil in release builds
func ListEnabled() []Category { return nil }
