package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdownV1(t *testing.T) {
	got, err := EscapeMarkdown("snake_case *bold* [link] `code`", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, "snake\\_case \\*bold\\* \\[link] \\`code\\`", got)
}

func TestEscapeMarkdownV2(t *testing.T) {
	got, err := EscapeMarkdown("v1.2 (beta)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "v1\\.2 \\(beta\\)\\!", got)
}

func TestEscapeMarkdownUnknownVersion(t *testing.T) {
	_, err := EscapeMarkdown("x", 3)
	assert.Error(t, err)
}
