package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Citation is a parsed source identifier of the form
// <path/filename>.pdf:<page>:<chunk-index>. It is used for display and
// navigation only.
type Citation struct {
	Raw         string
	Path        string
	Filename    string
	Page        int
	ChunkIndex  int
	DisplayName string
}

// ParseCitation splits a source identifier into its parts. The last two
// colon-delimited fields are the page and chunk index; everything before
// them is the document path.
func ParseCitation(raw string) (Citation, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return Citation{}, &ParseError{Raw: raw, Reason: "expected path:page:chunk"}
	}

	page, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-2]))
	if err != nil {
		return Citation{}, &ParseError{Raw: raw, Reason: "page is not an integer"}
	}
	chunk, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return Citation{}, &ParseError{Raw: raw, Reason: "chunk index is not an integer"}
	}

	path := strings.Join(parts[:len(parts)-2], ":")
	filename := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		filename = path[idx+1:]
	}
	if filename == "" {
		return Citation{}, &ParseError{Raw: raw, Reason: "missing filename"}
	}

	return Citation{
		Raw:         raw,
		Path:        path,
		Filename:    filename,
		Page:        page,
		ChunkIndex:  chunk,
		DisplayName: DisplayName(filename),
	}, nil
}

// DisplayName turns "foo-bar_baz.pdf" into "Foo bar baz".
func DisplayName(filename string) string {
	name := strings.Replace(filename, ".pdf", "", 1)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if name == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// CitationEntry pairs a raw source string with its parse outcome so a
// malformed entry can still be rendered verbatim.
type CitationEntry struct {
	Raw      string
	Citation *Citation
	Err      error
}

// ParseCitations parses every source independently; a malformed entry never
// aborts the others.
func ParseCitations(sources []string) []CitationEntry {
	entries := make([]CitationEntry, 0, len(sources))
	for _, raw := range sources {
		c, err := ParseCitation(raw)
		if err != nil {
			entries = append(entries, CitationEntry{Raw: raw, Err: err})
			continue
		}
		entries = append(entries, CitationEntry{Raw: raw, Citation: &c})
	}
	return entries
}

// Point is a coordinate on a rendered page.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChunkLocation is the visual region a citation resolves to.
type ChunkLocation struct {
	Page        int    `json:"page"`
	ChunkIndex  int    `json:"chunkIndex"`
	StartOffset Point  `json:"startOffset"`
	EndOffset   Point  `json:"endOffset"`
	Text        string `json:"text"`
}

// DocumentRef identifies a PDF in document storage.
type DocumentRef struct {
	Filename string
	URL      string
}
