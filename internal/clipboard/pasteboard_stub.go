//go:build !darwin

package clipboard

import (
	"errors"

	"clipvault/pkg/types"
)

var errUnsupported = errors.New("system clipboard is only available on macOS")

// Pasteboard is a placeholder on platforms without a supported system
// clipboard. It never reports a change.
type Pasteboard struct{}

func NewPasteboard() *Pasteboard {
	return &Pasteboard{}
}

func (p *Pasteboard) ChangeCount() int {
	return 0
}

func (p *Pasteboard) Read() (*types.Snapshot, error) {
	return nil, errUnsupported
}

func (p *Pasteboard) Write(item *types.ClipboardItem) error {
	return errUnsupported
}
