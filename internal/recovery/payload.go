package recovery

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PayloadShape identifies which historical browser encoder produced a
// decrypted payload. The shapes drifted over time, so the parser recognizes
// all of them instead of guessing field names ad hoc.
type PayloadShape string

const (
	// ShapeInline carries thumbnail/document data URLs directly.
	ShapeInline PayloadShape = "inline"
	// ShapeURLKeyed uses thumbnailUrl/documentUrl/fullDocument keys.
	ShapeURLKeyed PayloadShape = "url_keyed"
	// ShapeDocumentList nests entries under a documents array.
	ShapeDocumentList PayloadShape = "document_list"
)

var errNoAssets = errors.New("recovery: payload contains no recognizable assets")

type legacyDocEntry struct {
	Data     string `json:"data"`
	Document string `json:"document"`
	URL      string `json:"url"`
}

// legacyEnvelope is the union of every field name any encoder version used.
type legacyEnvelope struct {
	Thumbnail    string           `json:"thumbnail"`
	ThumbnailURL string           `json:"thumbnailUrl"`
	Document     string           `json:"document"`
	FullDocument string           `json:"fullDocument"`
	DocumentURL  string           `json:"documentUrl"`
	Documents    []legacyDocEntry `json:"documents"`
}

// Assets holds the data-URL assets selected from one payload.
type Assets struct {
	Shape     PayloadShape
	Thumbnail string
	Document  string
}

// parsePayload decodes a decrypted legacy payload and resolves its assets in
// fixed priority order: thumbnail then thumbnailUrl; document, fullDocument,
// documentUrl, then the first documents[] entry. The order is load-bearing:
// it matches what the historical encoders actually wrote.
func parsePayload(raw string) (*Assets, error) {
	var env legacyEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode payload json: %w", err)
	}

	assets := &Assets{Shape: classify(&env)}

	switch {
	case env.Thumbnail != "":
		assets.Thumbnail = env.Thumbnail
	case env.ThumbnailURL != "":
		assets.Thumbnail = env.ThumbnailURL
	}

	switch {
	case env.Document != "":
		assets.Document = env.Document
	case env.FullDocument != "":
		assets.Document = env.FullDocument
	case env.DocumentURL != "":
		assets.Document = env.DocumentURL
	case len(env.Documents) > 0:
		entry := env.Documents[0]
		switch {
		case entry.Data != "":
			assets.Document = entry.Data
		case entry.Document != "":
			assets.Document = entry.Document
		case entry.URL != "":
			assets.Document = entry.URL
		}
	}

	if assets.Thumbnail == "" && assets.Document == "" {
		return nil, errNoAssets
	}
	return assets, nil
}

func classify(env *legacyEnvelope) PayloadShape {
	switch {
	case len(env.Documents) > 0:
		return ShapeDocumentList
	case env.ThumbnailURL != "" || env.DocumentURL != "" || env.FullDocument != "":
		return ShapeURLKeyed
	default:
		return ShapeInline
	}
}

// decodeDataURL splits "data:<mime>;base64,<payload>" into mime and bytes.
func decodeDataURL(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("not a data url: %.32q", s)
	}
	rest := s[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("data url missing base64 marker: %.32q", s)
	}
	mimeType := rest[:sep]
	data, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mimeType, data, nil
}
