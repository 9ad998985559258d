package filings

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// internalErrorShapeA is the top-level error envelope the Filings API
// sometimes returns with an HTTP 200 status (spec.md §3 "inbound JSON").
type internalErrorShapeA struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// internalErrorShapeB nests the same information one level down; this is
// also the shape of the ordinary list envelope's metadata block, so the
// nested status code (not bare presence of the block) decides the outcome.
type internalErrorShapeB struct {
	Metadata struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"metadata"`
}

// CheckStatus implements the Filings client's dual-layer status
// normalization (spec.md §4.2): HTTP status first, then — on HTTP 200 — the
// internal JSON status shapes. The same content-type sniff applies to both
// endpoints: a 200 response without a JSON content type is accepted as is, so
// isDownload does not change the outcome. A body that parses as
// JSON but matches none of the recognized shapes raises
// ApiError(status_code=0, "Unexpected JSON response") verbatim, preserving
// spec.md §9's open-question decision (see DESIGN.md).
func CheckStatus(resp *http.Response, body []byte, isDownload bool) error {
	var endpoint string
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.Path
	}

	if err := checkHTTPStatus(resp.StatusCode, body, endpoint); err != nil {
		return err
	}

	contentType := resp.Header.Get("Content-Type")
	isJSON := strings.Contains(strings.ToLower(contentType), "application/json")

	if isDownload && !isJSON {
		// Binary payload on the download endpoint: no error.
		return nil
	}
	if !isJSON {
		return nil
	}

	return checkInternalStatus(body, endpoint)
}

func checkHTTPStatus(statusCode int, body []byte, endpoint string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	message := extractMessage(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return apperrors.APIErrorWithEndpoint(statusCode, message, endpoint)
}

// checkInternalStatus inspects the two internal-error shapes. The nested
// shape B's metadata.status (present on every response, error or not) is the
// authoritative signal: "200" or absent means success regardless of what
// else the envelope contains, even a populated resultset.
func checkInternalStatus(body []byte, endpoint string) error {
	var shapeB internalErrorShapeB
	if err := json.Unmarshal(body, &shapeB); err == nil && shapeB.Metadata.Status != "" {
		code, convErr := strconv.Atoi(shapeB.Metadata.Status)
		if convErr != nil {
			return &apperrors.Error{Kind: apperrors.KindAPIServer, Message: "Unexpected JSON response", Endpoint: endpoint}
		}
		if code == 200 {
			return nil
		}
		return apperrors.APIErrorWithEndpoint(code, shapeB.Metadata.Message, endpoint)
	}

	var shapeA internalErrorShapeA
	if err := json.Unmarshal(body, &shapeA); err == nil && (shapeA.StatusCode != 0 || shapeA.Message != "") {
		if shapeA.StatusCode == 0 || shapeA.StatusCode == 200 {
			return nil
		}
		return apperrors.APIErrorWithEndpoint(shapeA.StatusCode, shapeA.Message, endpoint)
	}

	if looksLikeNormalEnvelope(body) {
		return nil
	}

	return &apperrors.Error{Kind: apperrors.KindAPIServer, Message: "Unexpected JSON response", Endpoint: endpoint}
}

// looksLikeNormalEnvelope reports whether body parses as the ordinary list
// response shape (a metadata.resultset block) with no nested status at all.
func looksLikeNormalEnvelope(body []byte) bool {
	var probe struct {
		Metadata struct {
			Resultset json.RawMessage `json:"resultset"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return len(probe.Metadata.Resultset) > 0
}

func extractMessage(body []byte) string {
	var shapeA internalErrorShapeA
	if err := json.Unmarshal(body, &shapeA); err == nil && shapeA.Message != "" {
		return shapeA.Message
	}
	var shapeB internalErrorShapeB
	if err := json.Unmarshal(body, &shapeB); err == nil && shapeB.Metadata.Message != "" {
		return shapeB.Metadata.Message
	}
	return ""
}
