// Package viewer builds citation links, resolves citations to page regions
// and serves the local PDF viewer page.
package viewer

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/doeshing/pdqa/internal/domain"
)

// Links derives the URLs a citation or query is reachable at.
type Links struct {
	viewerBase  string
	storageBase string
}

// NewLinks builds link helpers from viewer settings.
func NewLinks(cfg domain.ViewerSettings) Links {
	return Links{
		viewerBase:  strings.TrimRight(cfg.BaseURL, "/"),
		storageBase: strings.TrimRight(cfg.PDFStorageURL, "/"),
	}
}

// ViewerURL is {base}?file=<filename>&page=N&chunk=M.
func (l Links) ViewerURL(c domain.Citation) string {
	q := url.Values{}
	q.Set("file", c.Filename)
	q.Set("page", strconv.Itoa(c.Page))
	q.Set("chunk", strconv.Itoa(c.ChunkIndex))
	return l.viewerBase + "?" + q.Encode()
}

// PDFURL is {storage}/{filename}, with the filename escaped as one segment.
func (l Links) PDFURL(filename string) string {
	return l.storageBase + "/" + url.PathEscape(filename)
}

// Document returns the storage reference for filename.
func (l Links) Document(filename string) domain.DocumentRef {
	return domain.DocumentRef{Filename: filename, URL: l.PDFURL(filename)}
}

// ShareURL is the web client address that resumes queryID, built on the
// origin of the viewer base URL.
func (l Links) ShareURL(queryID string) string {
	origin := l.viewerBase
	if u, err := url.Parse(l.viewerBase); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return origin + "/?" + url.Values{"query_id": {queryID}}.Encode()
}
