//go:build darwin

package clipboard

import (
	"strings"

	"github.com/progrium/darwinkit/macos/appkit"

	"clipvault/pkg/types"
)

// Pasteboard adapts the macOS general pasteboard to the Clipboard
// interface.
type Pasteboard struct {
	pb appkit.Pasteboard
}

func NewPasteboard() *Pasteboard {
	return &Pasteboard{pb: appkit.Pasteboard_GeneralPasteboard()}
}

func (p *Pasteboard) ChangeCount() int {
	return p.pb.ChangeCount()
}

// Read gathers every representation the pasteboard currently offers.
func (p *Pasteboard) Read() (*types.Snapshot, error) {
	snap := &types.Snapshot{}

	if urls := p.pb.StringForType(appkit.PasteboardType("public.file-url")); urls != "" {
		for _, u := range strings.Split(urls, "\n") {
			u = strings.TrimSpace(u)
			if u != "" {
				snap.Files = append(snap.Files, strings.TrimPrefix(u, "file://"))
			}
		}
	}

	if data := p.pb.DataForType(appkit.PasteboardType("public.rtf")); len(data) > 0 {
		snap.RichText = data
	}

	if data := p.pb.DataForType(appkit.PasteboardType("public.png")); len(data) > 0 {
		snap.Image = data
	} else if data := p.pb.DataForType(appkit.PasteboardType("public.tiff")); len(data) > 0 {
		snap.Image = data
	}

	snap.PlainText = p.pb.StringForType(appkit.PasteboardType("public.utf8-plain-text"))
	snap.SourceApp = p.sourceApp()

	return snap, nil
}

// Write places the item back on the pasteboard. Images are written from
// their full-fidelity payload; everything else as plain text.
func (p *Pasteboard) Write(item *types.ClipboardItem) error {
	p.pb.ClearContents()

	switch item.Type {
	case types.TypeImage:
		if len(item.Data) > 0 {
			p.pb.SetDataForType(item.Data, appkit.PasteboardType("public.png"))
			return nil
		}
		p.pb.SetStringForType(item.Content, appkit.PasteboardType("public.utf8-plain-text"))
	case types.TypeRichText:
		if len(item.Data) > 0 {
			p.pb.SetDataForType(item.Data, appkit.PasteboardType("public.rtf"))
		}
		p.pb.SetStringForType(item.Content, appkit.PasteboardType("public.utf8-plain-text"))
	case types.TypeText, types.TypeURL, types.TypeFileURL:
		text := item.Content
		if len(item.Data) > 0 {
			text = string(item.Data) // full text behind a truncated preview
		}
		p.pb.SetStringForType(text, appkit.PasteboardType("public.utf8-plain-text"))
	}
	return nil
}

// sourceApp tries pasteboard metadata first, then the frontmost
// application.
func (p *Pasteboard) sourceApp() string {
	if app := p.pb.StringForType(appkit.PasteboardType("com.apple.pasteboard.app")); app != "" {
		return app
	}
	if bundleID := p.pb.StringForType(appkit.PasteboardType("com.apple.pasteboard.bundleid")); bundleID != "" {
		if apps := appkit.RunningApplication_RunningApplicationsWithBundleIdentifier(bundleID); len(apps) > 0 {
			return apps[0].LocalizedName()
		}
	}
	if app := appkit.Workspace_SharedWorkspace().FrontmostApplication(); app.LocalizedName() != "" {
		return app.LocalizedName()
	}
	return ""
}
