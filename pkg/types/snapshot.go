package types

// Snapshot is a single read of the clipboard with every representation the
// source offered. A single clipboard write commonly exposes several
// overlapping representations at once.
type Snapshot struct {
	Files     []string // file-reference representation
	RichText  []byte   // formatted-text representation (RTF or HTML bytes)
	PlainText string   // plain-string representation
	Image     []byte   // image bytes in whatever encoding the source used
	SourceApp string   // originating application, when known
}

// Empty reports whether the snapshot carries nothing recognizable.
func (s *Snapshot) Empty() bool {
	return s == nil ||
		(len(s.Files) == 0 && len(s.RichText) == 0 && s.PlainText == "" && len(s.Image) == 0)
}
