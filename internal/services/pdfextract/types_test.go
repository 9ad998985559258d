package pdfextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRange_Resolve_NilBoundsMeanFirstLast(t *testing.T) {
	start, end := PageRange{}.resolve(10)
	assert.Equal(t, 1, start)
	assert.Equal(t, 10, end)
}

func TestPageRange_Resolve_ClampsToPageCount(t *testing.T) {
	s, e := 5, 999
	start, end := PageRange{StartPage: &s, EndPage: &e}.resolve(10)
	assert.Equal(t, 5, start)
	assert.Equal(t, 10, end)
}

func TestPageRange_Resolve_StartBelowOneClampsToOne(t *testing.T) {
	s := -3
	start, _ := PageRange{StartPage: &s}.resolve(10)
	assert.Equal(t, 1, start)
}
