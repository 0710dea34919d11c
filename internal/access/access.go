// Package access decides whether the user has allowed the engine to read a
// directory the operating system refused, and asks when they have not.
package access

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/duopane/internal/debug"
	"github.com/justyntemme/duopane/internal/logging"
	"github.com/justyntemme/duopane/internal/metrics"
)

// Service is consulted by the sync engine when a scan is refused.
type Service interface {
	// HasAccess reports whether a grant already covers path.
	HasAccess(path string) bool
	// RequestAccessPersisting asks the user for access and remembers a grant.
	// It blocks until the user answers or ctx is done.
	RequestAccessPersisting(ctx context.Context, path string) bool
}

// GrantStore persists granted directories.
type GrantStore interface {
	HasGrant(path string) (bool, error)
	RecordGrant(path string) error
}

// Prompter asks the user about one path.
type Prompter interface {
	Prompt(ctx context.Context, path string) (bool, error)
}

// Manager implements Service over a GrantStore and a Prompter. A grant on a
// directory covers its descendants. Concurrent requests for the same path
// share a single prompt.
type Manager struct {
	grants   GrantStore
	prompter Prompter
	group    singleflight.Group
}

// NewManager returns a Manager. A nil store keeps grants in memory.
func NewManager(grants GrantStore, prompter Prompter) *Manager {
	if grants == nil {
		grants = NewMemoryGrants()
	}
	if prompter == nil {
		prompter = StaticPrompter{}
	}
	return &Manager{grants: grants, prompter: prompter}
}

// HasAccess reports whether path or one of its ancestors was granted.
func (m *Manager) HasAccess(path string) bool {
	for _, p := range ancestors(path) {
		ok, err := m.grants.HasGrant(p)
		if err != nil {
			logging.L().Warn("access: grant lookup failed", zap.String("path", p), zap.Error(err))
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// RequestAccessPersisting prompts for path and records the grant.
func (m *Manager) RequestAccessPersisting(ctx context.Context, path string) bool {
	path = filepath.Clean(path)

	ch := m.group.DoChan(path, func() (interface{}, error) {
		debug.Log(debug.ACCESS, "access: prompting for %q", path)
		granted, err := m.prompter.Prompt(ctx, path)
		if err != nil {
			return false, err
		}
		if granted {
			if err := m.grants.RecordGrant(path); err != nil {
				logging.L().Error("access: persist grant", zap.String("path", path), zap.Error(err))
			}
		}
		metrics.RecordAccessRequest(granted)
		return granted, nil
	})

	select {
	case <-ctx.Done():
		return false
	case res := <-ch:
		if res.Err != nil {
			logging.L().Warn("access: prompt failed", zap.String("path", path), zap.Error(res.Err))
			return false
		}
		granted, _ := res.Val.(bool)
		debug.Log(debug.ACCESS, "access: %q granted=%v shared=%v", path, granted, res.Shared)
		return granted
	}
}

// ancestors returns path and each parent up to the root.
func ancestors(path string) []string {
	path = filepath.Clean(path)
	var out []string
	for {
		out = append(out, path)
		parent := filepath.Dir(path)
		if parent == path {
			return out
		}
		path = parent
	}
}

// MemoryGrants is a GrantStore that forgets on exit.
type MemoryGrants struct {
	mu     sync.RWMutex
	grants map[string]bool
}

// NewMemoryGrants returns an empty MemoryGrants.
func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{grants: make(map[string]bool)}
}

func (g *MemoryGrants) HasGrant(path string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grants[filepath.Clean(path)], nil
}

func (g *MemoryGrants) RecordGrant(path string) error {
	g.mu.Lock()
	g.grants[filepath.Clean(path)] = true
	g.mu.Unlock()
	return nil
}

// StaticPrompter answers every prompt the same way.
type StaticPrompter struct {
	Grant bool
}

func (p StaticPrompter) Prompt(context.Context, string) (bool, error) {
	return p.Grant, nil
}

// Asker poses a question and returns the user's reply.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// LinePrompter asks through an Asker and accepts "y" or "yes".
type LinePrompter struct {
	Asker Asker
}

func (p LinePrompter) Prompt(ctx context.Context, path string) (bool, error) {
	answer, err := p.Asker.Ask(ctx, fmt.Sprintf("Allow access to %s? [y/N] ", path))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ParsePolicy maps a configured policy to a Prompter. "prompt" uses asker.
func ParsePolicy(policy string, asker Asker) (Prompter, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "prompt":
		if asker == nil {
			return StaticPrompter{}, nil
		}
		return LinePrompter{Asker: asker}, nil
	case "grant":
		return StaticPrompter{Grant: true}, nil
	case "deny":
		return StaticPrompter{}, nil
	}
	return nil, fmt.Errorf("unknown access policy %q", policy)
}
