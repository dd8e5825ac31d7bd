package types

import "time"

// ContentType classifies a clipboard payload. The set is closed: every
// consumption site switches exhaustively over these values.
type ContentType int

const (
	TypeText ContentType = iota
	TypeRichText
	TypeURL
	TypeImage
	TypeFileURL
)

func (t ContentType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeRichText:
		return "richText"
	case TypeURL:
		return "url"
	case TypeImage:
		return "image"
	case TypeFileURL:
		return "fileURL"
	}
	return "unknown"
}

// ParseContentType maps a stored type tag back to its ContentType.
// Unrecognized tags fall back to TypeText so old rows stay readable.
func ParseContentType(s string) ContentType {
	switch s {
	case "richText":
		return TypeRichText
	case "url":
		return TypeURL
	case "image":
		return TypeImage
	case "fileURL":
		return TypeFileURL
	default:
		return TypeText
	}
}

// Preview bounds s to limit runes, appending an ellipsis when truncated.
// Stored previews never exceed this bound; the full text travels as the
// item's inline payload instead.
func Preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// ClipboardItem is the unit of clipboard history.
type ClipboardItem struct {
	ID          uint64      `json:"id"`
	Content     string      `json:"content"` // bounded display/search string
	Type        ContentType `json:"type"`
	ContentHash string      `json:"contentHash"`
	Timestamp   time.Time   `json:"timestamp"`
	SourceApp   string      `json:"sourceApp,omitempty"`
	Data        []byte      `json:"-"`    // inline payload, nil when the preview is the whole content
	HasBlob     bool        `json:"hasBlob"` // full-fidelity payload lives in the blob store under ContentHash
	IsFavorite  bool        `json:"isFavorite"`
}
