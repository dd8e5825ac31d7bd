// Package classify turns a raw clipboard snapshot into exactly one
// (content, type, payload) triple, or nothing if the snapshot carries no
// recognizable representation.
package classify

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"clipvault/pkg/types"
)

// richOverheadThreshold is the minimum byte overhead of a rich payload over
// its plain text before the rich representation counts as genuine
// formatting. Editors routinely publish an RTF wrapper around unformatted
// text; those collapse to plain.
const richOverheadThreshold = 512

// Result is the classification of one clipboard snapshot.
type Result struct {
	Content string            // display/search string, bounded by the preview length
	Type    types.ContentType // closed variant
	Aux     []byte            // full-fidelity payload when Content is a derivation
}

type Classifier struct {
	previewLength int
	now           func() time.Time
}

func New(previewLength int) *Classifier {
	return &Classifier{previewLength: previewLength, now: time.Now}
}

// Classify applies the representation precedence order: file references,
// rich text, image, plain string. First match wins. Returns nil when the
// snapshot holds nothing usable.
func (c *Classifier) Classify(snap *types.Snapshot) *Result {
	if snap.Empty() {
		return nil
	}

	if len(snap.Files) > 0 {
		return c.classifyFiles(snap.Files)
	}

	if res := c.classifyRichText(snap.RichText, snap.PlainText); res != nil {
		return res
	}

	if res := c.classifyImage(snap.Image); res != nil {
		return res
	}

	return c.classifyPlain(snap.PlainText)
}

func (c *Classifier) classifyFiles(files []string) *Result {
	var content string
	if len(files) == 1 {
		content = files[0]
	} else {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		content = fmt.Sprintf("[%d files] %s", len(files), strings.Join(names, ", "))
	}
	return c.bounded(content, types.TypeFileURL)
}

// classifyRichText promotes a rich payload over plain text only when it
// shows genuine formatting: recognized control sequences, or byte overhead
// beyond the plain text above the threshold.
func (c *Classifier) classifyRichText(rich []byte, plain string) *Result {
	if len(rich) == 0 || strings.TrimSpace(plain) == "" {
		return nil
	}

	formatted := bytes.HasPrefix(rich, []byte(`{\rtf`)) ||
		bytes.Contains(rich, []byte("<html")) ||
		len(rich)-len(plain) > richOverheadThreshold
	if !formatted {
		return nil
	}

	res := c.bounded(plain, types.TypeRichText)
	res.Aux = rich
	return res
}

// classifyImage decodes the image bytes and re-encodes them to canonical
// PNG, so logically identical images arriving via different native
// encodings hash to the same identity. Undecodable bytes fall through to
// the plain-text path.
func (c *Classifier) classifyImage(data []byte) *Result {
	if len(data) == 0 {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}

	bounds := img.Bounds()
	content := fmt.Sprintf("[Image %d×%d %s]",
		bounds.Dx(), bounds.Dy(), c.now().Format("2006-01-02 15:04:05"))

	return &Result{
		Content: content,
		Type:    types.TypeImage,
		Aux:     buf.Bytes(),
	}
}

func (c *Classifier) classifyPlain(text string) *Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if u, err := url.Parse(trimmed); err == nil && u.Host != "" &&
		(u.Scheme == "http" || u.Scheme == "https") && !strings.ContainsAny(trimmed, " \n\t") {
		return c.bounded(trimmed, types.TypeURL)
	}
	if strings.HasPrefix(trimmed, "file://") {
		return c.bounded(trimmed, types.TypeFileURL)
	}

	return c.bounded(text, types.TypeText)
}

// bounded truncates content to the preview length; when it truncates, the
// full text travels as the auxiliary payload so hashing and paste-back
// still see the whole content.
func (c *Classifier) bounded(content string, t types.ContentType) *Result {
	preview := types.Preview(content, c.previewLength)
	res := &Result{Content: preview, Type: t}
	if preview != content {
		res.Aux = []byte(content)
	}
	return res
}
