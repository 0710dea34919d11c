package engine

import (
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

// Observer receives scan outcomes. Calls for one side are serialized and
// arrive in publish order; calls for different sides may run concurrently.
// An observer must not call SetSort or SetSideSort for the side it is being
// notified about.
type Observer interface {
	OnScanResult(side panel.Side, entries []fs.Entry)
	OnScanError(side panel.Side, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Result func(side panel.Side, entries []fs.Entry)
	Error  func(side panel.Side, err error)
}

// OnScanResult calls o.Result if set.
func (o ObserverFuncs) OnScanResult(side panel.Side, entries []fs.Entry) {
	if o.Result != nil {
		o.Result(side, entries)
	}
}

// OnScanError calls o.Error if set.
func (o ObserverFuncs) OnScanError(side panel.Side, err error) {
	if o.Error != nil {
		o.Error(side, err)
	}
}
