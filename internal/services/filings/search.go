package filings

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// SearchService turns a DocumentFilter into a result list by iterating the
// requested date range one day at a time against the Filings client. It
// never talks to a database; the Filings API is the sole source of truth.
type SearchService struct {
	client *Client
	logger arbor.ILogger
}

// NewSearchService builds a search service over an existing Filings client.
func NewSearchService(client *Client, logger arbor.ILogger) *SearchService {
	return &SearchService{client: client, logger: logger}
}

const dateLayout = "2006-01-02"

// Search runs the day-by-day iteration described in spec.md §4.4.
// Iteration is strictly sequential by construction: this preserves the
// early-termination guarantee (newest-first with max_documents=1 costs one
// HTTP call, not up to 1,825) that parallelizing the date loop would break.
func (s *SearchService) Search(ctx context.Context, filter models.DocumentFilter) ([]models.FilingMetadata, error) {
	endDate := time.Now()
	if filter.EndDate != nil {
		endDate = *filter.EndDate
	}
	startDate := endDate.AddDate(-5, 0, 0)
	if filter.StartDate != nil {
		startDate = *filter.StartDate
	}

	newestFirst := filter.SearchOrder != models.SearchOrderOldestFirst

	var accumulator []models.FilingMetadata

	visit := func(day time.Time) (stop bool) {
		if err := ctx.Err(); err != nil {
			return true
		}

		resp, err := s.client.ListDocuments(ctx, day.Format(dateLayout), ListTypeFullDetail)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", day.Format(dateLayout)).Msg("skipping date after list-documents failure")
			return false
		}

		for _, doc := range applyFilters(resp.Results, filter) {
			accumulator = append(accumulator, doc)
		}

		if filter.MaxDocuments > 0 && len(accumulator) >= filter.MaxDocuments {
			accumulator = accumulator[:filter.MaxDocuments]
			return true
		}
		return false
	}

	if newestFirst {
		for day := endDate; !day.Before(startDate); day = day.AddDate(0, 0, -1) {
			if visit(day) {
				break
			}
		}
	} else {
		for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
			if visit(day) {
				break
			}
		}
	}

	sort.SliceStable(accumulator, func(i, j int) bool {
		return accumulator[i].SubmitDateTime > accumulator[j].SubmitDateTime
	})

	return accumulator, nil
}

// applyFilters narrows results inline, in the fixed order spec.md §4.4
// specifies: securities code (exact), submitter identifier (exact), company
// name (substring), document-type codes (membership, OR logic).
func applyFilters(docs []models.FilingMetadata, filter models.DocumentFilter) []models.FilingMetadata {
	out := make([]models.FilingMetadata, 0, len(docs))
	for _, doc := range docs {
		if filter.SecCode != "" && doc.SecCode != filter.SecCode {
			continue
		}
		if filter.EdinetCode != "" && doc.EdinetCode != filter.EdinetCode {
			continue
		}
		if filter.CompanyName != "" && !strings.Contains(doc.FilerName, filter.CompanyName) {
			continue
		}
		if len(filter.DocTypeCodes) > 0 && !containsAny(filter.DocTypeCodes, doc.DocTypeCode) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

func containsAny(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
