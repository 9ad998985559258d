package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatio_ExactMatch(t *testing.T) {
	assert.Equal(t, 100, partialRatio("トヨタ自動車", "トヨタ自動車"))
}

func TestPartialRatio_SubstringMatchesHigh(t *testing.T) {
	score := partialRatio("トヨタ", "トヨタ自動車株式会社")
	assert.GreaterOrEqual(t, score, 90)
}

func TestPartialRatio_NoOverlapIsLow(t *testing.T) {
	score := partialRatio("ソニー", "トヨタ自動車")
	assert.Less(t, score, 50)
}

func TestPartialRatio_EmptyInputIsZero(t *testing.T) {
	assert.Equal(t, 0, partialRatio("", "トヨタ"))
	assert.Equal(t, 0, partialRatio("トヨタ", ""))
}

func TestAsciiUpper(t *testing.T) {
	assert.Equal(t, "TOYOTA MOTOR", asciiUpper("Toyota Motor"))
}
