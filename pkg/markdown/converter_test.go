package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNotesHTML(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "heading and paragraph",
			input:    "## Photosynthesis\n\nPlants make food.",
			expected: "<h2>Photosynthesis</h2>\n\n<p>Plants make food.</p>",
		},
		{
			name:     "bold and code survive",
			input:    "The **area** is `l * b`.",
			expected: "<p>The <strong>area</strong> is <code>l * b</code>.</p>",
		},
		{
			name:     "list items",
			input:    "- one\n- two",
			expected: "<ul>\n<li>one</li>\n<li>two</li>\n</ul>",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToNotesHTML(tc.input))
		})
	}
}

func TestSanitizeNotesHTML(t *testing.T) {
	// Attributes are stripped from allowed tags.
	assert.Equal(t, "<p>hi</p>", sanitizeNotesHTML(`<p class="x" onclick="evil()">hi</p>`))

	// Unsupported tags disappear but their content stays.
	assert.Equal(t, "alert", sanitizeNotesHTML(`<script>alert</script>`))
	assert.Equal(t, "link", sanitizeNotesHTML(`<a href="http://example.com">link</a>`))

	// Self-closing breaks are normalized.
	assert.Equal(t, "a<br>b", sanitizeNotesHTML("a<br/>b"))
}
