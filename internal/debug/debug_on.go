//go:build debug

// Package debug provides categorized trace logging for the sync engine.
// Build with -tags debug to enable it; records are written through the
// shared zap logger at debug level.
package debug

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/duopane/internal/logging"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	ENGINE  Category = "ENGINE"  // Panel state machine, triggers, coalescing
	SCAN    Category = "SCAN"    // Directory listing
	STORE   Category = "STORE"   // Database operations
	ACCESS  Category = "ACCESS"  // Access grants and prompts
	WATCH   Category = "WATCH"   // Filesystem notifications
	HISTORY Category = "HISTORY" // Navigation and selections history
	CLI     Category = "CLI"     // Command loop

	// Verbose
	SCAN_ENTRY Category = "SCAN_ENTRY" // Individual entry processing
)

var (
	enabledCategories = map[Category]bool{
		ENGINE:  true,
		SCAN:    true,
		STORE:   true,
		ACCESS:  true,
		WATCH:   true,
		HISTORY: true,
		CLI:     true,

		SCAN_ENTRY: false,
	}
	categoryMu sync.RWMutex
)

func init() {
	// DUOPANE_DEBUG=ENGINE,SCAN or DUOPANE_DEBUG=all or DUOPANE_DEBUG=none
	if env := os.Getenv("DUOPANE_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				enabledCategories[Category(strings.TrimSpace(cat))] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	logging.L().Debug(fmt.Sprintf(format, args...), zap.String("category", string(cat)))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// ListEnabled returns a slice of currently enabled categories
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}
