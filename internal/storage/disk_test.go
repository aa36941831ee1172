package storage

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	doccrypto "github.com/JGooseK41/NFTServiceApp-sub006/internal/crypto"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db/models"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRepo is the in-memory metadataRepo used by these tests.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]*models.EncryptedDocument
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*models.EncryptedDocument)}
}

func (r *memRepo) create(ctx context.Context, row *models.EncryptedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.DocumentID]; ok {
		return errDuplicateID
	}
	cp := *row
	r.rows[row.DocumentID] = &cp
	return nil
}

func (r *memRepo) get(ctx context.Context, documentID string) (*models.EncryptedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[documentID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memRepo) findByNotice(ctx context.Context, noticeID string) (*models.EncryptedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []*models.EncryptedDocument
	for _, row := range r.rows {
		if row.NoticeID == noticeID {
			matches = append(matches, row)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	cp := *matches[0]
	return &cp, nil
}

func (r *memRepo) touchLastAccessed(ctx context.Context, documentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[documentID]; ok {
		row.LastAccessed = at
	}
	return nil
}

type allowlistAdmin struct {
	admins map[string]bool
}

func (a allowlistAdmin) IsAdmin(ctx context.Context, address string) (bool, error) {
	return a.admins[address], nil
}

func newTestManager(t *testing.T, admins map[string]bool) (*Manager, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	m := &Manager{
		meta:     repo,
		basePath: t.TempDir(),
		admin:    allowlistAdmin{admins: admins},
		logger:   zap.NewNop(),
		metrics:  metrics.NewCollector(),
	}
	return m, repo
}

var documentIDPattern = regexp.MustCompile(`^doc_\d+_[0-9a-f]{16}$`)

func TestNewDocumentIDFormat(t *testing.T) {
	id, err := newDocumentID()
	require.NoError(t, err)
	assert.Regexp(t, documentIDPattern, id)

	other, err := newDocumentID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestStoreRetrieveEndToEnd(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	content := bytes.Repeat([]byte("%PDF"), 256) // 1 KiB
	stored, err := m.Store(ctx, content, Metadata{
		NoticeID:         "N1",
		CaseNumber:       "24-CV-001",
		ServerAddress:    "Tserver",
		RecipientAddress: "Trecipient",
		MimeType:         "application/pdf",
		OriginalName:     "summons.pdf",
	})
	require.NoError(t, err)
	assert.Regexp(t, documentIDPattern, stored.DocumentID)
	assert.Equal(t, int64(1024), stored.Size)
	assert.FileExists(t, stored.FilePath)

	// The blob on disk is not the plaintext.
	blob, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "%PDF")

	for _, principal := range []string{"Trecipient", "Tserver"} {
		doc, err := m.Retrieve(ctx, stored.DocumentID, principal)
		require.NoError(t, err)
		assert.Equal(t, content, doc.Plaintext)
		assert.Equal(t, "application/pdf", doc.MimeType)
		assert.Equal(t, "summons.pdf", doc.Filename)
	}

	_, err = m.Retrieve(ctx, stored.DocumentID, "TrandomOther")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRetrieveAdminBypass(t *testing.T) {
	m, _ := newTestManager(t, map[string]bool{"Tadmin": true})
	ctx := context.Background()

	stored, err := m.Store(ctx, []byte("notice body"), Metadata{
		NoticeID:         "N2",
		ServerAddress:    "Tserver",
		RecipientAddress: "Trecipient",
		MimeType:         "text/plain",
	})
	require.NoError(t, err)

	doc, err := m.Retrieve(ctx, stored.DocumentID, "Tadmin")
	require.NoError(t, err)
	assert.Equal(t, []byte("notice body"), doc.Plaintext)
}

func TestRetrieveUnknownDocument(t *testing.T) {
	m, _ := newTestManager(t, nil)

	_, err := m.Retrieve(context.Background(), "doc_0_0000000000000000", "Trecipient")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetrieveTamperedBlob(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	stored, err := m.Store(ctx, []byte("original content"), Metadata{
		NoticeID:         "N3",
		ServerAddress:    "Tserver",
		RecipientAddress: "Trecipient",
	})
	require.NoError(t, err)

	blob, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0x01
	require.NoError(t, os.WriteFile(stored.FilePath, blob, 0o600))

	// Corruption must surface as an authentication error, never as an
	// authorization failure or silent garbage.
	_, err = m.Retrieve(ctx, stored.DocumentID, "Trecipient")
	assert.ErrorIs(t, err, doccrypto.ErrAuthentication)
}

func TestGetMetadataNoAuth(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	meta, err := m.GetMetadata(ctx, "doc_missing")
	require.NoError(t, err)
	assert.Nil(t, meta)

	stored, err := m.Store(ctx, []byte("x"), Metadata{
		NoticeID:         "N4",
		ServerAddress:    "Tserver",
		RecipientAddress: "Trecipient",
		MimeType:         "text/plain",
	})
	require.NoError(t, err)

	meta, err = m.GetMetadata(ctx, stored.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "N4", meta.NoticeID)
	// Metadata-only read carries no plaintext.
	assert.NotEmpty(t, meta.EncryptionKey)
}

func TestFindByNoticeIDNewestWins(t *testing.T) {
	m, repo := newTestManager(t, nil)
	ctx := context.Background()

	first, err := m.Store(ctx, []byte("v1"), Metadata{NoticeID: "N5", ServerAddress: "s", RecipientAddress: "r"})
	require.NoError(t, err)
	second, err := m.Store(ctx, []byte("v2"), Metadata{NoticeID: "N5", ServerAddress: "s", RecipientAddress: "r"})
	require.NoError(t, err)

	// Force distinct creation times regardless of clock resolution.
	repo.mu.Lock()
	repo.rows[first.DocumentID].CreatedAt = time.Now().Add(-time.Minute)
	repo.rows[second.DocumentID].CreatedAt = time.Now()
	repo.mu.Unlock()

	meta, err := m.FindByNoticeID(ctx, "N5")
	require.NoError(t, err)
	assert.Equal(t, second.DocumentID, meta.DocumentID)
}
