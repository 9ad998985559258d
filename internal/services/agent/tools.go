package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
	"github.com/tak-akashi/company-research-agent/internal/services/cache"
	"github.com/tak-akashi/company-research-agent/internal/services/company"
	"github.com/tak-akashi/company-research-agent/internal/services/filings"
	"github.com/tak-akashi/company-research-agent/internal/services/irpipeline"
	"github.com/tak-akashi/company-research-agent/internal/services/pdfextract"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

const (
	ToolSearchCompany     = "search_company"
	ToolSearchDocuments   = "search_documents"
	ToolDownloadDocument  = "download_document"
	ToolAnalyzeDocument   = "analyze_document"
	ToolSummarizeDocument = "summarize_document"
	ToolCompareDocuments  = "compare_documents"
	ToolFetchIRDocuments  = "fetch_ir_documents"
	ToolFetchIRNews       = "fetch_ir_news"
	ToolExploreIRPage     = "explore_ir_page"
)

// Definitions returns the tool set spec.md §4.11 names, in the table's
// declared order, for the orchestrator to describe to the model.
func Definitions() []ToolDefinition {
	str := map[string]interface{}{"type": "string"}
	return []ToolDefinition{
		{
			Name:        ToolSearchCompany,
			Description: "Search the company directory by name or securities/EDINET code; returns top-N ranked candidates.",
			InputSchema: objSchema(map[string]interface{}{"query": str}, "query"),
		},
		{
			Name:        ToolSearchDocuments,
			Description: "Search disclosure filings by company, document type, and date range.",
			InputSchema: objSchema(map[string]interface{}{
				"sec_code":       str,
				"edinet_code":    str,
				"company_name":   str,
				"doc_type_codes": map[string]interface{}{"type": "array", "items": str},
				"start_date":     map[string]interface{}{"type": "string", "description": "ISO date"},
				"end_date":       map[string]interface{}{"type": "string", "description": "ISO date"},
				"search_order":   map[string]interface{}{"type": "string", "enum": []string{"newest_first", "oldest_first"}},
				"max_documents":  map[string]interface{}{"type": "integer"},
			}),
		},
		{
			Name:        ToolDownloadDocument,
			Description: "Download a filing's PDF by doc_id to the local cache, using metadata hints to place it in the download hierarchy.",
			InputSchema: objSchema(map[string]interface{}{
				"doc_id":          str,
				"sec_code":        str,
				"filer_name":      str,
				"doc_type_code":   str,
				"period_end":      str,
				"period_start":    str,
				"doc_description": str,
			}, "doc_id"),
		},
		{
			Name:        ToolAnalyzeDocument,
			Description: "Produce a comprehensive analysis of a downloaded filing, optionally relative to a prior filing.",
			InputSchema: objSchema(map[string]interface{}{
				"doc_id":          str,
				"prior_doc_id":    str,
				"sec_code":        str,
				"filer_name":      str,
				"doc_type_code":   str,
				"period_end":      str,
				"period_start":    str,
				"doc_description": str,
			}, "doc_id"),
		},
		{
			Name:        ToolSummarizeDocument,
			Description: "Summarize a downloaded filing, optionally focused on a specific aspect.",
			InputSchema: objSchema(map[string]interface{}{
				"doc_id":          str,
				"focus":           str,
				"sec_code":        str,
				"filer_name":      str,
				"doc_type_code":   str,
				"period_end":      str,
				"period_start":    str,
				"doc_description": str,
			}, "doc_id"),
		},
		{
			Name:        ToolCompareDocuments,
			Description: "Compare two or more downloaded filings across named aspects.",
			InputSchema: objSchema(map[string]interface{}{
				"doc_ids": map[string]interface{}{"type": "array", "items": str},
				"aspects": map[string]interface{}{"type": "array", "items": str},
			}, "doc_ids"),
		},
		{
			Name:        ToolFetchIRDocuments,
			Description: "Fetch a company's investor-relations documents (earnings, disclosures, or news) with optional LLM summaries.",
			InputSchema: objSchema(map[string]interface{}{
				"sec_code":     str,
				"category":     map[string]interface{}{"type": "string", "enum": []string{"earnings", "news", "disclosures"}},
				"since_days":   map[string]interface{}{"type": "integer"},
				"with_summary": map[string]interface{}{"type": "boolean"},
			}, "sec_code"),
		},
		{
			Name:        ToolFetchIRNews,
			Description: "Fetch a company's recent investor-relations news items, capped to a limit.",
			InputSchema: objSchema(map[string]interface{}{
				"sec_code":   str,
				"limit":      map[string]interface{}{"type": "integer"},
				"since_days": map[string]interface{}{"type": "integer"},
			}, "sec_code"),
		},
		{
			Name:        ToolExploreIRPage,
			Description: "Discover and fetch investor-relations documents from an arbitrary URL with no registered template.",
			InputSchema: objSchema(map[string]interface{}{
				"url":        str,
				"since_days": map[string]interface{}{"type": "integer"},
			}, "url"),
		},
	}
}

func objSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Toolset binds every tool handler to its backing service. It is the
// agent's only dependency on the rest of the module's business logic.
type Toolset struct {
	Directory    *company.Directory
	Search       *filings.SearchService
	FilingClient *filings.Client
	Cache        *cache.Service
	PDF          *pdfextract.Extractor
	IR           *irpipeline.Service
	Provider     interfaces.LLMProvider
	DownloadRoot string
	Logger       arbor.ILogger
}

// missingDependency names the collaborator(s) each tool depends on, checked
// up front so a partially-wired Toolset fails a single tool call instead
// of panicking the whole orchestration run.
func (t *Toolset) missingDependency(name string) string {
	switch name {
	case ToolSearchCompany:
		if t.Directory == nil {
			return "company directory"
		}
	case ToolSearchDocuments:
		if t.Search == nil {
			return "filings search service"
		}
	case ToolDownloadDocument:
		if t.FilingClient == nil || t.Cache == nil {
			return "filings client or cache service"
		}
	case ToolAnalyzeDocument, ToolSummarizeDocument, ToolCompareDocuments:
		if t.Cache == nil || t.PDF == nil || t.Provider == nil {
			return "cache, PDF extractor, or LLM provider"
		}
	case ToolFetchIRDocuments, ToolFetchIRNews, ToolExploreIRPage:
		if t.IR == nil {
			return "IR pipeline service"
		}
	}
	return ""
}

// Execute dispatches a tool call by name, always returning a ToolResult
// (handler failures are captured as IsError results, never a Go error, so
// the orchestration loop never aborts on a single bad tool call).
func (t *Toolset) Execute(ctx context.Context, call ToolCall) ToolResult {
	if missing := t.missingDependency(call.Name); missing != "" {
		err := apperrors.New(apperrors.KindToolExecution, fmt.Sprintf("tool %q is unavailable: %s is not configured", call.Name, missing))
		return ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}

	var (
		content string
		err     error
	)
	switch call.Name {
	case ToolSearchCompany:
		content, err = t.searchCompany(ctx, call.Arguments)
	case ToolSearchDocuments:
		content, err = t.searchDocuments(ctx, call.Arguments)
	case ToolDownloadDocument:
		content, err = t.downloadDocument(ctx, call.Arguments)
	case ToolAnalyzeDocument:
		content, err = t.analyzeDocument(ctx, call.Arguments)
	case ToolSummarizeDocument:
		content, err = t.summarizeDocument(ctx, call.Arguments)
	case ToolCompareDocuments:
		content, err = t.compareDocuments(ctx, call.Arguments)
	case ToolFetchIRDocuments:
		content, err = t.fetchIRDocuments(ctx, call.Arguments)
	case ToolFetchIRNews:
		content, err = t.fetchIRNews(ctx, call.Arguments)
	case ToolExploreIRPage:
		content, err = t.exploreIRPage(ctx, call.Arguments)
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}

	if err != nil {
		return ToolResult{ToolCallID: call.ID, Content: apperrors.ToolExecutionError(err, call.Name).Error(), IsError: true}
	}
	return ToolResult{ToolCallID: call.ID, Content: content}
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func argInt(args map[string]interface{}, key string) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

func argBool(args map[string]interface{}, key string) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func argStringSlice(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func marshalResult(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *Toolset) searchCompany(ctx context.Context, args map[string]interface{}) (string, error) {
	query := argString(args, "query")
	candidates, err := t.Directory.Search(ctx, query)
	if err != nil {
		return "", err
	}
	type candidateOut struct {
		SecCode    string `json:"sec_code"`
		EdinetCode string `json:"edinet_code"`
		Name       string `json:"name"`
		Similarity int    `json:"similarity"`
		IsListed   bool   `json:"is_listed"`
	}
	out := make([]candidateOut, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateOut{
			SecCode:    c.Record.SecCode,
			EdinetCode: c.Record.EdinetCode,
			Name:       c.Record.Name,
			Similarity: c.Similarity,
			IsListed:   c.IsListed,
		})
	}
	return marshalResult(map[string]interface{}{"candidates": out})
}

func parseDateArg(s string) *time.Time {
	if s == "" {
		return nil
	}
	if parsed, err := time.Parse("2006-01-02", s); err == nil {
		return &parsed
	}
	return nil
}

func documentMetadata(d models.FilingMetadata) map[string]interface{} {
	return map[string]interface{}{
		"doc_id":          d.DocID,
		"sec_code":        d.SecCode,
		"filer_name":      d.FilerName,
		"doc_type_code":   d.DocTypeCode,
		"period_end":      d.PeriodEnd,
		"period_start":    d.PeriodStart,
		"doc_description": d.DocDescription,
	}
}

func (t *Toolset) searchDocuments(ctx context.Context, args map[string]interface{}) (string, error) {
	filter := models.DocumentFilter{
		SecCode:      argString(args, "sec_code"),
		EdinetCode:   argString(args, "edinet_code"),
		CompanyName:  argString(args, "company_name"),
		DocTypeCodes: argStringSlice(args, "doc_type_codes"),
		StartDate:    parseDateArg(argString(args, "start_date")),
		EndDate:      parseDateArg(argString(args, "end_date")),
		MaxDocuments: argInt(args, "max_documents"),
	}
	if order := argString(args, "search_order"); order != "" {
		filter.SearchOrder = models.SearchOrder(order)
	} else {
		filter.SearchOrder = models.SearchOrderNewestFirst
	}

	docs, err := t.Search.Search(ctx, filter)
	if err != nil {
		return "", err
	}

	results := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		entry := documentMetadata(d)
		entry["submit_date_time"] = d.SubmitDateTime
		results = append(results, entry)
	}
	return marshalResult(map[string]interface{}{"documents": results})
}

// resolveHints builds a FilingMetadata shell from a tool call's metadata
// propagation fields (spec.md §4.11 "Metadata propagation").
func resolveHints(args map[string]interface{}) models.FilingMetadata {
	return models.FilingMetadata{
		DocID:          argString(args, "doc_id"),
		SecCode:        argString(args, "sec_code"),
		FilerName:      argString(args, "filer_name"),
		DocTypeCode:    argString(args, "doc_type_code"),
		PeriodEnd:      argString(args, "period_end"),
		PeriodStart:    argString(args, "period_start"),
		DocDescription: argString(args, "doc_description"),
	}
}

func (t *Toolset) downloadDocument(ctx context.Context, args map[string]interface{}) (string, error) {
	hints := resolveHints(args)
	if hints.DocID == "" {
		return "", apperrors.New(apperrors.KindToolExecution, "doc_id is required")
	}

	if cached, err := t.Cache.FindByDocID(hints.DocID); err == nil && cached != nil {
		return marshalResult(map[string]interface{}{
			"file_path": cached.Path,
			"cached":    true,
			"metadata":  documentMetadata(hints),
		})
	}

	periodEnd := parseDateArg(hints.PeriodEnd)
	var periodEndTime time.Time
	if periodEnd != nil {
		periodEndTime = *periodEnd
	}
	destPath := cache.BuildFilingPath(t.DownloadRoot, hints.SecCode, hints.FilerName, hints.DocTypeCode, periodEndTime, hints.DocID)

	if err := t.FilingClient.DownloadDocument(ctx, hints.DocID, models.DownloadTypePDF, destPath); err != nil {
		return "", err
	}

	return marshalResult(map[string]interface{}{
		"file_path": destPath,
		"cached":    false,
		"metadata":  documentMetadata(hints),
	})
}

// resolveLocalPath finds a document's on-disk path by doc_id, downloading
// it first via the metadata hints if it isn't cached yet. analyze,
// summarize, and compare all need a local file before they can extract text.
func (t *Toolset) resolveLocalPath(ctx context.Context, args map[string]interface{}) (string, error) {
	docID := argString(args, "doc_id")
	if cached, err := t.Cache.FindByDocID(docID); err == nil && cached != nil {
		return cached.Path, nil
	}
	raw, err := t.downloadDocument(ctx, args)
	if err != nil {
		return "", err
	}
	var decoded struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", err
	}
	return decoded.FilePath, nil
}

var analysisSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"overview":   map[string]interface{}{"type": "string"},
		"key_points": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"risks":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	},
	"required": []string{"overview", "key_points", "risks"},
}

func (t *Toolset) analyzeDocument(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := t.resolveLocalPath(ctx, args)
	if err != nil {
		return "", err
	}
	parsed, err := t.PDF.Extract(path, pdfextract.Auto, pdfextract.PageRange{})
	if err != nil {
		return "", err
	}

	priorSection := ""
	if priorID := argString(args, "prior_doc_id"); priorID != "" {
		if priorDoc, err := t.Cache.FindByDocID(priorID); err == nil && priorDoc != nil {
			if priorParsed, err := t.PDF.Extract(priorDoc.Path, pdfextract.Auto, pdfextract.PageRange{}); err == nil {
				priorSection = "\n\nPrior period filing for comparison:\n" + truncate(priorParsed.Text, 15000)
			}
		}
	}

	prompt := fmt.Sprintf("Analyze the following disclosure filing for an equity research analyst. Provide an overview, key points, and risks.\n\nFiling content:\n%s%s",
		truncate(parsed.Text, 30000), priorSection)

	var analysis struct {
		Overview  string   `json:"overview"`
		KeyPoints []string `json:"key_points"`
		Risks     []string `json:"risks"`
	}
	if err := t.Provider.InvokeStructured(ctx, prompt, analysisSchema, &analysis); err != nil {
		return "", apperrors.LLMProviderError(err, "document analysis failed")
	}

	hints := resolveHints(args)
	return marshalResult(map[string]interface{}{
		"overview":   analysis.Overview,
		"key_points": analysis.KeyPoints,
		"risks":      analysis.Risks,
		"metadata":   documentMetadata(hints),
	})
}

var summarySchema = map[string]interface{}{
	"type":       "object",
	"properties": map[string]interface{}{"summary": map[string]interface{}{"type": "string"}},
	"required":   []string{"summary"},
}

func (t *Toolset) summarizeDocument(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := t.resolveLocalPath(ctx, args)
	if err != nil {
		return "", err
	}
	parsed, err := t.PDF.Extract(path, pdfextract.Auto, pdfextract.PageRange{})
	if err != nil {
		return "", err
	}

	focusClause := ""
	if focus := argString(args, "focus"); focus != "" {
		focusClause = fmt.Sprintf(" Focus the summary on: %s.", focus)
	}
	prompt := fmt.Sprintf("Summarize the following disclosure filing for an equity research analyst.%s\n\nFiling content:\n%s", focusClause, truncate(parsed.Text, 30000))

	var result struct {
		Summary string `json:"summary"`
	}
	if err := t.Provider.InvokeStructured(ctx, prompt, summarySchema, &result); err != nil {
		return "", apperrors.LLMProviderError(err, "document summarization failed")
	}

	hints := resolveHints(args)
	return marshalResult(map[string]interface{}{"summary": result.Summary, "metadata": documentMetadata(hints)})
}

var comparisonSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"aspects": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"aspect":   map[string]interface{}{"type": "string"},
					"findings": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"aspect", "findings"},
			},
		},
	},
	"required": []string{"aspects"},
}

func (t *Toolset) compareDocuments(ctx context.Context, args map[string]interface{}) (string, error) {
	docIDs := argStringSlice(args, "doc_ids")
	if len(docIDs) < 2 {
		return "", apperrors.New(apperrors.KindToolExecution, "compare_documents requires at least two doc_ids")
	}
	aspects := argStringSlice(args, "aspects")

	var sections string
	for i, id := range docIDs {
		cached, err := t.Cache.FindByDocID(id)
		if err != nil || cached == nil {
			return "", apperrors.New(apperrors.KindToolExecution, fmt.Sprintf("doc_id %q is not downloaded", id))
		}
		parsed, err := t.PDF.Extract(cached.Path, pdfextract.Auto, pdfextract.PageRange{})
		if err != nil {
			return "", err
		}
		sections += fmt.Sprintf("\n\nDocument %d (doc_id=%s):\n%s", i+1, id, truncate(parsed.Text, 15000))
	}

	aspectClause := "Compare the documents across the aspects that matter most to an equity research analyst."
	if len(aspects) > 0 {
		aspectClause = fmt.Sprintf("Compare the documents across exactly these aspects: %v.", aspects)
	}
	prompt := fmt.Sprintf("%s%s", aspectClause, sections)

	var comparison struct {
		Aspects []struct {
			Aspect   string   `json:"aspect"`
			Findings []string `json:"findings"`
		} `json:"aspects"`
	}
	if err := t.Provider.InvokeStructured(ctx, prompt, comparisonSchema, &comparison); err != nil {
		return "", apperrors.LLMProviderError(err, "document comparison failed")
	}
	return marshalResult(comparison)
}

func sinceFromDays(args map[string]interface{}) *time.Time {
	days := argInt(args, "since_days")
	if days <= 0 {
		return nil
	}
	t := time.Now().AddDate(0, 0, -days)
	return &t
}

func irDocumentOut(d models.IRDocument) map[string]interface{} {
	out := map[string]interface{}{
		"title":      d.Title,
		"url":        d.URL,
		"category":   d.Category,
		"is_skipped": d.IsSkipped,
		"file_path":  d.FilePath,
	}
	if d.PublishedDate != nil {
		out["published_date"] = d.PublishedDate.Format("2006-01-02")
	}
	if d.Summary != nil {
		out["summary"] = d.Summary
	}
	return out
}

func (t *Toolset) fetchIRDocuments(ctx context.Context, args map[string]interface{}) (string, error) {
	secCode := argString(args, "sec_code")
	category := models.IRCategory(argString(args, "category"))
	docs, err := t.IR.FetchIRDocuments(ctx, secCode, category, sinceFromDays(args), false, argBool(args, "with_summary"))
	if err != nil {
		return "", err
	}
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, irDocumentOut(d))
	}
	return marshalResult(map[string]interface{}{"documents": out})
}

func (t *Toolset) fetchIRNews(ctx context.Context, args map[string]interface{}) (string, error) {
	secCode := argString(args, "sec_code")
	docs, err := t.IR.FetchIRDocuments(ctx, secCode, models.IRCategoryNews, sinceFromDays(args), false, true)
	if err != nil {
		return "", err
	}
	if limit := argInt(args, "limit"); limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, irDocumentOut(d))
	}
	return marshalResult(map[string]interface{}{"documents": out})
}

func (t *Toolset) exploreIRPage(ctx context.Context, args map[string]interface{}) (string, error) {
	url := argString(args, "url")
	docs, err := t.IR.ExploreIRPage(ctx, url, sinceFromDays(args), false, true)
	if err != nil {
		return "", err
	}
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, irDocumentOut(d))
	}
	return marshalResult(map[string]interface{}{"documents": out})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
