package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example Blog</title>
<link>https://blog.example.com</link>
<description>Engineering notes</description>
<item>
<guid>post-1</guid>
<title>First Post</title>
<link>https://blog.example.com/1</link>
<description>The first one</description>
<pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
<category>golang</category>
<category>storage</category>
<author>jane@example.com (Jane)</author>
</item>
<item>
<title>Second Post</title>
<link>https://blog.example.com/2</link>
</item>
</channel>
</rss>`

func TestFeedFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	info, items, err := NewFeedFetcher().Fetch(context.Background(), server.URL+"/feed.xml")
	require.NoError(t, err)

	assert.Equal(t, "Example Blog", info.Title)
	assert.Equal(t, "Engineering notes", info.Description)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "post-1", first.NativeID)
	assert.Equal(t, "First Post", first.Title)
	assert.Equal(t, []string{"golang", "storage"}, first.Categories)
	assert.Contains(t, first.Author, "Jane")
	assert.Equal(t, 2023, first.Published.Year())

	// No GUID falls back to the link; no pubDate gets a current timestamp
	second := items[1]
	assert.Equal(t, "https://blog.example.com/2", second.NativeID)
	assert.False(t, second.Published.IsZero())
}

func TestFeedFetcherBadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	_, _, err := NewFeedFetcher().Fetch(context.Background(), server.URL+"/feed.xml")
	require.Error(t, err)
}

func TestFormatAuthor(t *testing.T) {
	assert.Equal(t, "jane@example.com (Jane)", formatAuthor("Jane", "jane@example.com"))
	assert.Equal(t, "Jane", formatAuthor("Jane", ""))
	assert.Equal(t, "jane@example.com", formatAuthor("", "jane@example.com"))
	assert.Equal(t, "", formatAuthor("  ", " "))
}
