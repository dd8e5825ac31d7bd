package classify

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipvault/internal/hash"
	"clipvault/pkg/types"
)

func newTestClassifier() *Classifier {
	c := New(500)
	c.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	}
	return c
}

func TestClassify_EmptySnapshot(t *testing.T) {
	c := newTestClassifier()
	assert.Nil(t, c.Classify(&types.Snapshot{}))
	assert.Nil(t, c.Classify(&types.Snapshot{PlainText: "   \n\t"}))
}

func TestClassify_FilePrecedenceOverEverything(t *testing.T) {
	c := newTestClassifier()
	res := c.Classify(&types.Snapshot{
		Files:     []string{"/tmp/report.pdf"},
		PlainText: "report.pdf",
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeFileURL, res.Type)
	assert.Equal(t, "/tmp/report.pdf", res.Content)
}

func TestClassify_MultiFileSummary(t *testing.T) {
	c := newTestClassifier()
	res := c.Classify(&types.Snapshot{
		Files: []string{"/tmp/a.txt", "/home/u/b.png", "/var/c.log"},
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeFileURL, res.Type)
	assert.Equal(t, "[3 files] a.txt, b.png, c.log", res.Content)
}

func TestClassify_RichTextPromotion(t *testing.T) {
	c := newTestClassifier()

	// genuine RTF control sequence promotes
	res := c.Classify(&types.Snapshot{
		RichText:  []byte(`{\rtf1\ansi bold text}`),
		PlainText: "bold text",
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeRichText, res.Type)
	assert.Equal(t, "bold text", res.Content)
	assert.NotEmpty(t, res.Aux)

	// large byte overhead promotes even without a recognized prefix
	res = c.Classify(&types.Snapshot{
		RichText:  append([]byte("x"), make([]byte, 2048)...),
		PlainText: "x",
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeRichText, res.Type)
}

func TestClassify_ThinRichWrapperFallsBackToPlain(t *testing.T) {
	c := newTestClassifier()
	res := c.Classify(&types.Snapshot{
		RichText:  []byte("just the text"),
		PlainText: "just the text",
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeText, res.Type)
	assert.Nil(t, res.Aux)
}

func TestClassify_ImageDescriptionAndCanonicalForm(t *testing.T) {
	c := newTestClassifier()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	res := c.Classify(&types.Snapshot{Image: buf.Bytes()})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeImage, res.Type)
	assert.Equal(t, "[Image 8×6 2024-03-01 12:30:00]", res.Content)
	assert.NotEmpty(t, res.Aux)
}

func TestClassify_ImageNormalizationDedupsAcrossEncodings(t *testing.T) {
	c := newTestClassifier()

	// the same pixels encoded two different ways
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{
		color.RGBA{A: 255}, color.RGBA{R: 255, A: 255},
	})
	img.SetColorIndex(1, 1, 1)

	var asPNG, asGIF bytes.Buffer
	require.NoError(t, png.Encode(&asPNG, img))
	require.NoError(t, gif.Encode(&asGIF, img, nil))
	require.NotEqual(t, asPNG.Bytes(), asGIF.Bytes())

	resPNG := c.Classify(&types.Snapshot{Image: asPNG.Bytes()})
	resGIF := c.Classify(&types.Snapshot{Image: asGIF.Bytes()})
	require.NotNil(t, resPNG)
	require.NotNil(t, resGIF)

	assert.Equal(t,
		hash.Content(resPNG.Content, resPNG.Aux),
		hash.Content(resGIF.Content, resGIF.Aux),
		"identical pixels must share one content identity")
}

func TestClassify_UndecodableImageFallsThrough(t *testing.T) {
	c := newTestClassifier()
	res := c.Classify(&types.Snapshot{
		Image:     []byte("not an image"),
		PlainText: "fallback text",
	})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeText, res.Type)
}

func TestClassify_URLPromotion(t *testing.T) {
	c := newTestClassifier()

	res := c.Classify(&types.Snapshot{PlainText: "https://example.com/page?q=1"})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeURL, res.Type)

	res = c.Classify(&types.Snapshot{PlainText: "file:///Users/me/doc.txt"})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeFileURL, res.Type)

	// surrounding whitespace does not block promotion
	res = c.Classify(&types.Snapshot{PlainText: "https://example.com/page\n"})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeURL, res.Type)
	assert.Equal(t, "https://example.com/page", res.Content)

	// prose containing a URL is still text
	res = c.Classify(&types.Snapshot{PlainText: "see https://example.com for details"})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeText, res.Type)

	// relative or non-http schemes are not promoted
	res = c.Classify(&types.Snapshot{PlainText: "example.com/page"})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeText, res.Type)
}

func TestClassify_LongTextTruncatedWithFullPayload(t *testing.T) {
	c := newTestClassifier()
	long := strings.Repeat("abcdefghij", 100) // 1000 runes

	res := c.Classify(&types.Snapshot{PlainText: long})
	require.NotNil(t, res)
	assert.Equal(t, types.TypeText, res.Type)
	assert.Len(t, []rune(res.Content), 501) // bound plus ellipsis
	assert.Equal(t, long, string(res.Aux))

	// identity covers the full text, not the truncated preview
	assert.Equal(t, hash.Bytes([]byte(long)), hash.Content(res.Content, res.Aux))
}
