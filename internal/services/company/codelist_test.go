package company

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func encodeShiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	require.NoError(t, err)
	return encoded
}

func TestParseCodeListCSV_SkipsPreambleAndInvalidRows(t *testing.T) {
	csv := "EDINETコードリスト（令和）\n" +
		"ＥＤＩＮＥＴコード,証券コード,提出者名,提出者名（カナ）,提出者名（英字）,上場区分,提出者業種\n" +
		"E02144,7203,トヨタ自動車株式会社,トヨタジドウシャ,TOYOTA MOTOR CORPORATION,上場,輸送用機器\n" +
		",,欠損行,,,, \n"

	records, err := parseCodeListCSV(bytes.NewReader(encodeShiftJIS(t, csv)))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "E02144", rec.EdinetCode)
	assert.Equal(t, "72030", rec.SecCode, "4-digit sec code is zero-padded to 5 digits on load")
	assert.Equal(t, "トヨタ自動車株式会社", rec.Name)
	assert.Equal(t, "トヨタジドウシャ", rec.NameKana)
	assert.Equal(t, "TOYOTA MOTOR CORPORATION", rec.NameEnglish)
	assert.True(t, rec.Listed)
	assert.Equal(t, "輸送用機器", rec.IndustryCode)
}

func TestParseCodeListCSV_EmptyInputReturnsNoRecords(t *testing.T) {
	records, err := parseCodeListCSV(bytes.NewReader(encodeShiftJIS(t, "")))
	require.NoError(t, err)
	assert.Empty(t, records)
}
