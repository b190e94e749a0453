package viewer

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// maxSearchTerm bounds the passage carried in the fragment; browsers match
// on a prefix anyway.
const maxSearchTerm = 120

// IframeHighlighter navigates an embedded PDF to the cited page and asks the
// browser viewer to search for the passage.
type IframeHighlighter struct{}

// LocateAndHighlight implements ports.Highlighter. It returns the iframe
// source: {pdf}#page=N&search=<text>.
func (IframeHighlighter) LocateAndHighlight(_ context.Context, ref domain.DocumentRef, page int, text string) (string, error) {
	if ref.URL == "" {
		return "", errors.New("document has no URL")
	}
	if page < 1 {
		page = domain.DefaultViewerPage
	}
	fragment := "page=" + strconv.Itoa(page)
	if term := searchTerm(text); term != "" {
		fragment += "&search=" + url.QueryEscape(term)
	}
	return ref.URL + "#" + fragment, nil
}

func searchTerm(text string) string {
	term := strings.Join(strings.Fields(text), " ")
	if len(term) <= maxSearchTerm {
		return term
	}
	cut := strings.LastIndex(term[:maxSearchTerm], " ")
	if cut <= 0 {
		cut = maxSearchTerm
	}
	return term[:cut]
}

var _ ports.Highlighter = IframeHighlighter{}
