// Package clipboard defines the system-clipboard collaborator interface
// and the polling monitor that feeds captures into history.
package clipboard

import "clipvault/pkg/types"

// Clipboard is the host clipboard collaborator. The host exposes no change
// notification, only a monotonically increasing change counter, so the
// monitor polls it.
type Clipboard interface {
	// ChangeCount returns the clipboard's opaque change counter.
	ChangeCount() int

	// Read snapshots the current payload in every available representation.
	Read() (*types.Snapshot, error)

	// Write places an item's content back on the clipboard.
	Write(item *types.ClipboardItem) error
}
