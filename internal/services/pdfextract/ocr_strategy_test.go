package pdfextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

func TestOcrStrategy_AlwaysReturnsNotInstalled(t *testing.T) {
	_, err := NewOcrStrategy().Extract("doc.pdf", PageRange{})
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindOCR, appErr.Kind)
	assert.Equal(t, "not installed", appErr.Message)
}
