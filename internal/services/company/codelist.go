package company

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// Column names in EdinetcodeDlInfo.csv, the code list's embedded CSV file.
// Full-width where EDINET itself uses full-width characters in the header.
const (
	colEdinetCode  = "ＥＤＩＮＥＴコード"
	colSecCode     = "証券コード"
	colName        = "提出者名"
	colNameKana    = "提出者名（カナ）"
	colNameEnglish = "提出者名（英字）"
	colIndustry    = "提出者業種"
)

// parseCodeListCSV decodes r as Shift-JIS (cp932), skips the one
// human-readable preamble line, and parses the remaining rows by the
// documented column names (spec.md §4.3 "Load"). Rows missing a submitter
// identifier are skipped.
func parseCodeListCSV(r io.Reader) ([]models.CompanyRecord, error) {
	decoded := transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	buffered := bufio.NewReader(decoded)

	// First line is a human-readable description, not the header.
	if _, err := buffered.ReadString('\n'); err != nil && err != io.EOF {
		return nil, err
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.CompanyRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		edinetCode := get(row, colEdinetCode)
		if edinetCode == "" {
			continue
		}

		secCode := models.NormalizeSecCode(get(row, colSecCode))
		records = append(records, models.CompanyRecord{
			EdinetCode:   edinetCode,
			SecCode:      secCode,
			Name:         get(row, colName),
			NameKana:     get(row, colNameKana),
			NameEnglish:  get(row, colNameEnglish),
			Listed:       secCode != "",
			IndustryCode: get(row, colIndustry),
		})
	}
	return records, nil
}
