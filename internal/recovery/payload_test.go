package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadInlineShape(t *testing.T) {
	assets, err := parsePayload(`{"thumbnail":"data:image/png;base64,aaaa","document":"data:application/pdf;base64,bbbb"}`)
	require.NoError(t, err)
	assert.Equal(t, ShapeInline, assets.Shape)
	assert.Equal(t, "data:image/png;base64,aaaa", assets.Thumbnail)
	assert.Equal(t, "data:application/pdf;base64,bbbb", assets.Document)
}

func TestParsePayloadURLKeyedShape(t *testing.T) {
	assets, err := parsePayload(`{"thumbnailUrl":"data:image/png;base64,cccc","fullDocument":"data:application/pdf;base64,dddd"}`)
	require.NoError(t, err)
	assert.Equal(t, ShapeURLKeyed, assets.Shape)
	assert.Equal(t, "data:image/png;base64,cccc", assets.Thumbnail)
	assert.Equal(t, "data:application/pdf;base64,dddd", assets.Document)
}

func TestParsePayloadDocumentListShape(t *testing.T) {
	assets, err := parsePayload(`{"documents":[{"data":"data:application/pdf;base64,eeee"},{"data":"data:application/pdf;base64,ffff"}]}`)
	require.NoError(t, err)
	assert.Equal(t, ShapeDocumentList, assets.Shape)
	assert.Empty(t, assets.Thumbnail)
	assert.Equal(t, "data:application/pdf;base64,eeee", assets.Document)
}

func TestParsePayloadPriorityOrder(t *testing.T) {
	// When several variants are present the earliest in priority wins.
	assets, err := parsePayload(`{
		"thumbnail":"data:image/png;base64,tttt",
		"thumbnailUrl":"data:image/png;base64,uuuu",
		"document":"data:application/pdf;base64,vvvv",
		"fullDocument":"data:application/pdf;base64,wwww",
		"documentUrl":"data:application/pdf;base64,xxxx"
	}`)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,tttt", assets.Thumbnail)
	assert.Equal(t, "data:application/pdf;base64,vvvv", assets.Document)
}

func TestParsePayloadNoAssets(t *testing.T) {
	_, err := parsePayload(`{"unrelated":"field"}`)
	assert.ErrorIs(t, err, errNoAssets)

	_, err = parsePayload(`not json`)
	assert.Error(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	mimeType, data, err := decodeDataURL("data:application/pdf;base64,JVBERi0xLjQK")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, []byte("%PDF-1.4\n"), data)
}

func TestDecodeDataURLRejectsOther(t *testing.T) {
	_, _, err := decodeDataURL("https://example.com/file.pdf")
	assert.Error(t, err)

	_, _, err = decodeDataURL("data:text/plain,unencoded")
	assert.Error(t, err)

	_, _, err = decodeDataURL("data:application/pdf;base64,!!!")
	assert.Error(t, err)
}
