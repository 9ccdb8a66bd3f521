package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rlm/internal/store"
)

func TestParseGithubTemplate(t *testing.T) {
	ctx := "Source files from this repository are publicly viewable at https://github.com/akash-network/provider/blob/main/{filepath}"
	tmpl, ok := ParseURLTemplate(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://github.com/akash-network/provider/blob/main/", tmpl.Prefix)
	assert.Equal(t, "", tmpl.Suffix)
	assert.Equal(t,
		"https://github.com/akash-network/provider/blob/main/cmd/provider-services/main.go",
		tmpl.Resolve("cmd/provider-services/main.go"))
}

func TestParseTemplateWithSuffix(t *testing.T) {
	ctx := "https://example.com/docs/{filepath}#latest"
	tmpl, ok := ParseURLTemplate(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/docs/", tmpl.Prefix)
	assert.Equal(t, "#latest", tmpl.Suffix)
	assert.Equal(t, "https://example.com/docs/guide.md#latest", tmpl.Resolve("guide.md"))
}

func TestParsePlainURLNoPlaceholder(t *testing.T) {
	ctx := "files in docs/ map to https://akash.network/docs"
	tmpl, ok := ParseURLTemplate(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://akash.network/docs/", tmpl.Prefix)
	assert.Equal(t, "", tmpl.Suffix)
	assert.Equal(t, "https://akash.network/docs/getting-started.md", tmpl.Resolve("getting-started.md"))
}

func TestParseNoURL(t *testing.T) {
	_, ok := ParseURLTemplate("no url here")
	assert.False(t, ok)
}

func docWithTemplate() store.DocumentMeta {
	return store.DocumentMeta{
		ID:         "abc123",
		Name:       "test-repo",
		Source:     "github:owner/repo",
		Label:      "test",
		Size:       1000,
		IngestedAt: 0,
		URLContext: "https://github.com/owner/repo/blob/main/{filepath}",
	}
}

func TestResolveCitationsBasic(t *testing.T) {
	docs := []store.DocumentMeta{docWithTemplate()}
	accessed := []AccessedFile{
		{DocID: "abc123", Filename: "src/main.rs"},
		{DocID: "abc123", Filename: "README.md"},
	}
	newURLs := ResolveCitations(accessed, docs, nil)
	require.Len(t, newURLs, 2)
	assert.Equal(t, "https://github.com/owner/repo/blob/main/src/main.rs", newURLs[0])
	assert.Equal(t, "https://github.com/owner/repo/blob/main/README.md", newURLs[1])
}

func TestResolveCitationsDedupExisting(t *testing.T) {
	docs := []store.DocumentMeta{docWithTemplate()}
	accessed := []AccessedFile{
		{DocID: "abc123", Filename: "src/main.rs"},
		{DocID: "abc123", Filename: "README.md"},
	}
	existing := []string{"https://github.com/owner/repo/blob/main/src/main.rs"}
	newURLs := ResolveCitations(accessed, docs, existing)
	require.Len(t, newURLs, 1)
	assert.Equal(t, "https://github.com/owner/repo/blob/main/README.md", newURLs[0])
}

func TestResolveCitationsDedupSelf(t *testing.T) {
	docs := []store.DocumentMeta{docWithTemplate()}
	accessed := []AccessedFile{
		{DocID: "abc123", Filename: "src/main.rs"},
		{DocID: "abc123", Filename: "src/main.rs"},
	}
	newURLs := ResolveCitations(accessed, docs, nil)
	assert.Len(t, newURLs, 1)
}

func TestResolveCitationsNoURLContext(t *testing.T) {
	docs := []store.DocumentMeta{{ID: "abc123", URLContext: ""}}
	accessed := []AccessedFile{{DocID: "abc123", Filename: "src/main.rs"}}
	newURLs := ResolveCitations(accessed, docs, nil)
	assert.Empty(t, newURLs)
}

func TestResolveCitationsUnknownDoc(t *testing.T) {
	docs := []store.DocumentMeta{docWithTemplate()}
	accessed := []AccessedFile{{DocID: "unknown_id", Filename: "src/main.rs"}}
	newURLs := ResolveCitations(accessed, docs, nil)
	assert.Empty(t, newURLs)
}

func TestExtractMarkdownLinks_BasicAndDedup(t *testing.T) {
	text := "See [the readme](https://example.com/README.md) and also " +
		"[the readme again](https://example.com/README.md) plus [a relative link](./local.md)."
	urls := ExtractMarkdownLinks(text)
	assert.Equal(t, []string{"https://example.com/README.md"}, urls)
}

func TestExtractMarkdownLinks_PreservesOrder(t *testing.T) {
	text := "[one](http://a.example) then [two](http://b.example)"
	urls := ExtractMarkdownLinks(text)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, urls)
}

func TestExtractMarkdownLinks_NoLinks(t *testing.T) {
	assert.Empty(t, ExtractMarkdownLinks("no links in this text at all"))
}
