package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestFindByDocID_NoIndex(t *testing.T) {
	root := t.TempDir()
	writePDF(t, root, "72030_Toyota_Motor/120_annual/202406/S100ABCD.pdf")

	svc := NewService(root, nil, nil)
	doc, err := svc.FindByDocID("S100ABCD")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "S100ABCD", doc.DocID)
	assert.Equal(t, "72030", doc.SecCode)
	assert.Equal(t, "Toyota_Motor", doc.CompanyName)
	assert.Equal(t, "120", doc.DocTypeCode)
	assert.Equal(t, "202406", doc.Period)
}

func TestFindByDocID_Missing(t *testing.T) {
	root := t.TempDir()
	svc := NewService(root, nil, nil)
	doc, err := svc.FindByDocID("nope")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFindByFilter(t *testing.T) {
	root := t.TempDir()
	writePDF(t, root, "72030_Toyota_Motor/120_annual/202406/S100ABCD.pdf")
	writePDF(t, root, "72030_Toyota_Motor/140_quarterly/202403/S100WXYZ.pdf")
	writePDF(t, root, "99990_Other_Co/120_annual/202406/S100ZZZZ.pdf")

	svc := NewService(root, nil, nil)

	docs, err := svc.FindByFilter(Filter{SecCode: "72030"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = svc.FindByFilter(Filter{SecCode: "72030", DocTypeCode: "120"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "S100ABCD", docs[0].DocID)
}

func TestListAll_And_GetCacheStats(t *testing.T) {
	root := t.TempDir()
	writePDF(t, root, "72030_Toyota_Motor/120_annual/202406/S100ABCD.pdf")
	writePDF(t, root, "99990_Other_Co/120_annual/202406/S100ZZZZ.pdf")

	svc := NewService(root, nil, nil)

	docs, err := svc.ListAll()
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	stats, err := svc.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalCompanies)
}

func TestFindByDocID_WithIndex(t *testing.T) {
	root := t.TempDir()
	path := writePDF(t, root, "72030_Toyota_Motor/120_annual/202406/S100ABCD.pdf")

	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index"), nil)
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Put("S100ABCD", path))

	svc := NewService(root, idx, nil)
	doc, err := svc.FindByDocID("S100ABCD")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, path, doc.Path)
}
