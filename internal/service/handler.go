package service

import "clipvault/pkg/types"

// ClipboardChangeHandler is implemented by components that need to be
// notified when a new item enters history.
type ClipboardChangeHandler interface {
	HandleClipboardChange(item *types.ClipboardItem)
}
