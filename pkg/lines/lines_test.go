package lines_test

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/jaxron/listgen/pkg/lines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		marker   string
		expected []string
	}{
		{
			name:     "Lines after marker",
			body:     "Custom wordlist generated from http://app.aspell.net/create\n---\napple\nbanana\n",
			marker:   "---",
			expected: []string{"apple", "banana"},
		},
		{
			name:     "CRLF line endings",
			body:     "header\r\n---\r\napple\r\nbanana\r\n",
			marker:   "---",
			expected: []string{"apple", "banana"},
		},
		{
			name:     "Blank lines are skipped",
			body:     "---\n\napple\n   \n\nbanana",
			marker:   "---",
			expected: []string{"apple", "banana"},
		},
		{
			name:     "Only the first marker counts",
			body:     "---\napple\n---\nbanana\n",
			marker:   "---",
			expected: []string{"apple", "---", "banana"},
		},
		{
			name:     "Text after marker on the same line",
			body:     "begin: apple\nbanana\n",
			marker:   "begin:",
			expected: []string{" apple", "banana"},
		},
		{
			name:     "Empty marker selects the whole body",
			body:     "apple\nbanana\n",
			marker:   "",
			expected: []string{"apple", "banana"},
		},
		{
			name:     "Nothing after marker",
			body:     "header\n---\n",
			marker:   "---",
			expected: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := lines.Extract(strings.NewReader(tt.body), tt.marker)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	t.Run("Missing marker", func(t *testing.T) {
		t.Parallel()

		_, err := lines.Extract(strings.NewReader("<html>error</html>"), "---")
		require.ErrorIs(t, err, lines.ErrMarkerNotFound)
	})

	t.Run("Read failure", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("connection reset")
		_, err := lines.Extract(iotest.ErrReader(readErr), "---")
		require.ErrorIs(t, err, readErr)
	})
}
