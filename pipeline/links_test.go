package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	markdown := `# Title

Read the [user guide](https://example.com/docs/guide.md "The guide") first.
![screenshot](https://example.com/shot.png)
Then see [the repo](https://github.com/poiesic/corpus) and [guide again](https://example.com/docs/guide.md).
An empty one []() is ignored.`

	links := extractLinks(markdown)
	require.Len(t, links, 2)

	assert.Equal(t, "https://example.com/docs/guide.md", links[0].URL)
	assert.Equal(t, "user guide", links[0].Text)
	assert.Equal(t, "documentation", links[0].Hint)

	assert.Equal(t, "https://github.com/poiesic/corpus", links[1].URL)
	assert.Equal(t, "code", links[1].Hint)
}

func TestExtractLinksEmptyMarkdown(t *testing.T) {
	assert.Empty(t, extractLinks(""))
	assert.Empty(t, extractLinks("no links here at all"))
}

func TestClassifyLink(t *testing.T) {
	assert.Equal(t, "documentation", classifyLink("https://example.com/README"))
	assert.Equal(t, "documentation", classifyLink("https://example.com/docs/intro"))
	assert.Equal(t, "code", classifyLink("https://gitlab.com/group/project"))
	assert.Equal(t, "", classifyLink("https://example.com/pricing"))
}
