package store

// DocumentMeta describes one ingested document.
type DocumentMeta struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Source     string `json:"source"` // e.g. "github:owner/repo" or "url:<url>"
	Label      string `json:"label"`
	Size       int    `json:"size"`
	IngestedAt int64  `json:"ingested_at"` // unix epoch seconds
	URLContext string `json:"url_context,omitempty"`
}

// Excerpt is a character-indexed search hit window.
type Excerpt struct {
	DocID      string `json:"doc_id"`
	Offset     int    `json:"offset"` // character index of the keyword hit; Content starts up to 300 chars earlier
	Content    string `json:"content"`
	MatchCount int    `json:"match_count"`
}

// FileEntry is a section header discovered by ListFiles.
type FileEntry struct {
	Offset int    `json:"offset"` // character offset of the line start
	Name   string `json:"name"`
}

// QaRecord is a persisted question/answer exchange.
type QaRecord struct {
	ID         string   `json:"id"`
	Topic      string   `json:"topic"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	CitedURLs  []string `json:"cited_urls"`
	DocIDs     []string `json:"doc_ids"`
	Evidence   []string `json:"evidence"`
	Iterations int      `json:"iterations"`
	Timestamp  int64    `json:"timestamp"`
}
