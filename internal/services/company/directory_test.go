package company

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/common"
	"github.com/tak-akashi/company-research-agent/internal/services/substrate"
)

func buildCodeListZIP(t *testing.T) []byte {
	t.Helper()

	csvContent := "EDINETコードリスト\n" +
		"ＥＤＩＮＥＴコード,証券コード,提出者名,提出者名（カナ）,提出者名（英字）,上場区分,提出者業種\n" +
		"E02144,7203,トヨタ自動車株式会社,トヨタジドウシャ,TOYOTA MOTOR CORPORATION,上場,輸送用機器\n" +
		"E00001,,ソニーグループ株式会社,ソニーグループ,SONY GROUP CORPORATION,上場,電機\n"

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(csvFilename)
	require.NoError(t, err)
	_, err = w.Write(encodeShiftJIS(t, csvContent))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestDirectory(t *testing.T, serverURL string) *Directory {
	t.Helper()

	cfg := common.CompanyConfig{
		CacheDir:      t.TempDir(),
		CodeListURL:   serverURL,
		TTLDays:       7,
		FuzzyMinScore: 50,
		FuzzyLimit:    10,
	}
	sub := substrate.New(common.ScraperConfig{
		UserAgent:      "test-agent",
		RequestTimeout: 5 * time.Second,
	}, arbor.NewLogger())
	return NewDirectory(cfg, sub, arbor.NewLogger())
}

func TestDirectory_RefreshAndLoad(t *testing.T) {
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)
	require.NoError(t, dir.EnsureLoaded(context.Background(), false))

	assert.FileExists(t, filepath.Join(dir.cfg.CacheDir, csvFilename))
	assert.FileExists(t, filepath.Join(dir.cfg.CacheDir, timestampFilename))

	rec, err := dir.GetByEdinetCode(context.Background(), "e02144")
	require.NoError(t, err)
	assert.Equal(t, "トヨタ自動車株式会社", rec.Name)
}

// TestDirectory_GetBySecCode_NormalizesFourDigitInput pins spec.md §8 seed
// scenario 2: GetBySecCode("7203") must return the record stored under the
// canonical 5-digit "72030", with normalization happening in the directory,
// not the filings search filter.
func TestDirectory_GetBySecCode_NormalizesFourDigitInput(t *testing.T) {
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)

	rec, err := dir.GetBySecCode(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, "72030", rec.SecCode)
	assert.Equal(t, "トヨタ自動車株式会社", rec.Name)
}

func TestDirectory_GetBySecCode_NotFound(t *testing.T) {
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)
	_, err := dir.GetBySecCode(context.Background(), "99999")
	assert.Error(t, err)
}

func TestDirectory_Search_ExactEdinetCode(t *testing.T) {
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)
	candidates, err := dir.Search(context.Background(), "E02144")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 100, candidates[0].Similarity)
	assert.Equal(t, "トヨタ自動車株式会社", candidates[0].Record.Name)
}

func TestDirectory_Search_FuzzyMatchSortsByPrefixAndListing(t *testing.T) {
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)
	candidates, err := dir.Search(context.Background(), "トヨタ")
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "トヨタ自動車株式会社", candidates[0].Record.Name)
	assert.True(t, candidates[0].IsListed)
}

func TestDirectory_IsCacheValid_StaleTimestampTriggersRefresh(t *testing.T) {
	var requestCount int
	zipBytes := buildCodeListZIP(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Write(zipBytes)
	}))
	defer server.Close()

	dir := newTestDirectory(t, server.URL)
	require.NoError(t, dir.EnsureLoaded(context.Background(), false))
	assert.Equal(t, 1, requestCount)

	require.NoError(t, dir.EnsureLoaded(context.Background(), false))
	assert.Equal(t, 1, requestCount, "valid cache must not trigger a second download")

	require.NoError(t, dir.EnsureLoaded(context.Background(), true))
	assert.Equal(t, 2, requestCount, "forceRefresh always re-downloads")

	staleStamp := time.Now().Add(-8 * 24 * time.Hour).Format(time.RFC3339)
	require.NoError(t, os.WriteFile(dir.timestampPath(), []byte(staleStamp), 0o644))
	require.NoError(t, dir.EnsureLoaded(context.Background(), false))
	assert.Equal(t, 3, requestCount, "stale timestamp triggers a re-download")
}
