// Package apperrors defines the typed error taxonomy shared across the
// filings client, scraper, PDF extractor, and LLM providers.
package apperrors

import (
	"fmt"
	"strings"
)

// Kind identifies which class of failure an Error represents.
type Kind string

const (
	KindAPIAuthentication Kind = "authentication_error"
	KindAPINotFound       Kind = "not_found_error"
	KindAPIServer         Kind = "server_error"
	KindParse             Kind = "parse_error"
	KindVisionAPI         Kind = "vision_api_error"
	KindOCR               Kind = "ocr_error"
	KindLLMProvider       Kind = "llm_provider_error"
	KindCodeListDownload  Kind = "code_list_download_error"
	KindPageAccess        Kind = "page_access_error"
	KindDocumentDownload  Kind = "document_download_error"
	KindTemplateNotFound  Kind = "template_not_found_error"
	KindCompanyNotFound   Kind = "company_not_found_error"
	KindAgentTurnLimit    Kind = "agent_turn_limit_error"
	KindToolExecution     Kind = "tool_execution_error"
)

// Error is the single typed error shape used throughout the module. Kind
// distinguishes the taxonomy branch; StatusCode and Retryable are populated
// only where meaningful for that Kind.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Endpoint   string
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind that preserves cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// APIError constructs the ApiError family (status_code-bearing errors from the
// Filings API), dispatching to the specific subtype by status code.
func APIError(statusCode int, message string) *Error {
	return APIErrorWithEndpoint(statusCode, message, "")
}

// APIErrorWithEndpoint is APIError plus the endpoint that produced it, per
// spec.md §7's {status_code, message, endpoint} shape for the ApiError family.
func APIErrorWithEndpoint(statusCode int, message, endpoint string) *Error {
	kind := KindAPIServer
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = KindAPIAuthentication
	case statusCode == 404:
		kind = KindAPINotFound
	}
	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Retryable:  statusCode >= 500 || statusCode == 429 || statusCode == 408,
	}
}

// IsRateLimit reports whether err indicates a vendor rate-limit / quota
// rejection, by inspecting the error text for well-known substrings. Mirrors
// the teacher's string-substring detection approach for vendor-specific
// rate-limit signaling (no structured error type is available for every
// vendor SDK).
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource_exhausted", "rate limit", "quota", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// VisionAPIError wraps a vision-LLM call failure, flagging whether it looks
// like a transient rate-limit (retryable) vs. a hard failure.
func VisionAPIError(cause error, message string) *Error {
	return &Error{
		Kind:      KindVisionAPI,
		Message:   message,
		Cause:     cause,
		Retryable: IsRateLimit(cause),
	}
}

// OCRError reports an OCR-strategy failure. reason is typically "not
// installed" since no OCR engine binding is available in this build.
func OCRError(reason string) *Error {
	return &Error{Kind: KindOCR, Message: reason}
}

// CodeListDownloadError reports a failure to obtain the EDINET code list
// after retries (spec.md §4.3). Not retryable at the caller level.
func CodeListDownloadError(cause error, url string) *Error {
	return &Error{
		Kind:    KindCodeListDownload,
		Message: fmt.Sprintf("failed to download code list from %s", url),
		Cause:   cause,
	}
}

// CompanyNotFoundError reports that no company record matched the given
// query (exact-match lookups; fuzzy search returns an empty slice instead).
func CompanyNotFoundError(query string) *Error {
	return &Error{Kind: KindCompanyNotFound, Message: fmt.Sprintf("no company found for %q", query)}
}

// TemplateNotFoundError reports that no IR scrape template exists for a
// sec code and the explorer fallback also failed or was disabled
// (spec.md §4.9).
func TemplateNotFoundError(message string) *Error {
	return &Error{Kind: KindTemplateNotFound, Message: message}
}

// PageAccessError reports a failure to fetch or parse a web page (robots
// disallow, non-2xx status, network failure) during IR scraping.
func PageAccessError(cause error, url string) *Error {
	return &Error{
		Kind:    KindPageAccess,
		Message: fmt.Sprintf("failed to access page %s", url),
		Cause:   cause,
	}
}

// DocumentDownloadError reports a failure to download a document (PDF or
// otherwise) after both the HTTP and browser-fallback legs were exhausted.
func DocumentDownloadError(cause error, url string) *Error {
	return &Error{
		Kind:    KindDocumentDownload,
		Message: fmt.Sprintf("failed to download document from %s", url),
		Cause:   cause,
	}
}

// LLMProviderError wraps a generic provider-call failure (a non-vision
// invoke_structured call, client construction, credential resolution).
func LLMProviderError(cause error, message string) *Error {
	return &Error{
		Kind:      KindLLMProvider,
		Message:   message,
		Cause:     cause,
		Retryable: IsRateLimit(cause),
	}
}

// AgentTurnLimitError reports that the tool-orchestration loop exhausted its
// configured turn budget without the model emitting a final answer.
func AgentTurnLimitError(maxTurns int) *Error {
	return &Error{Kind: KindAgentTurnLimit, Message: fmt.Sprintf("agent did not complete within %d turns", maxTurns)}
}

// ToolExecutionError wraps a tool handler failure so it can be surfaced to
// the model as an error-flagged tool result instead of aborting the loop.
func ToolExecutionError(cause error, toolName string) *Error {
	return &Error{Kind: KindToolExecution, Message: fmt.Sprintf("tool %q failed: %s", toolName, cause), Cause: cause}
}

// UnsupportedVisionError reports that invoke_vision was called on a provider
// whose supports_vision is false, per spec.md §4.6's "MUST raise a typed
// error otherwise".
func UnsupportedVisionError(providerName, model string) *Error {
	return &Error{
		Kind:    KindVisionAPI,
		Message: fmt.Sprintf("provider %q (model %q) does not support vision", providerName, model),
	}
}
