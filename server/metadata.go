package server

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Metadata is the og:/twitter: card scraped from a link in a message.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Site        string `json:"site,omitempty"`
}

// GetMetadata fetches a page and pulls its social card tags. Returns nil
// unless the page carries a complete card.
func GetMetadata(uri string) *Metadata {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}

	d, err := goquery.NewDocument(u.String())
	if err != nil {
		return nil
	}

	g := new(Metadata)

	for _, node := range d.Find("meta").Nodes {
		if len(node.Attr) < 2 {
			continue
		}

		p := strings.Split(node.Attr[0].Val, ":")
		if len(p) < 2 || (p[0] != "twitter" && p[0] != "og") {
			continue
		}

		switch p[1] {
		case "site_name":
			g.Site = node.Attr[1].Val
		case "site":
			if len(g.Site) == 0 {
				g.Site = node.Attr[1].Val
			}
		case "title":
			g.Title = node.Attr[1].Val
		case "description":
			g.Description = node.Attr[1].Val
		case "card", "type":
			g.Type = node.Attr[1].Val
		case "url":
			g.URL = node.Attr[1].Val
		case "image":
			if len(p) > 2 && p[2] == "src" {
				g.Image = node.Attr[1].Val
			} else if len(g.Image) == 0 {
				g.Image = node.Attr[1].Val
			}
		}
	}

	if len(g.Type) == 0 || len(g.Image) == 0 || len(g.Title) == 0 || len(g.URL) == 0 {
		return nil
	}

	return g
}

// unfurl scans a routed message for a link and attaches its metadata to
// the history copy. Runs in its own goroutine; the live broadcast is
// never delayed by the fetch.
func (s *Server) unfurl(m *Message) {
	for _, part := range strings.Fields(m.Message) {
		if !strings.HasPrefix(part, "http://") && !strings.HasPrefix(part, "https://") {
			continue
		}
		g := GetMetadata(part)
		if g == nil {
			continue
		}
		s.history.SetMetadata(m.ID, g)
		s.log.Debug("unfurled link", zap.String("message", m.ID), zap.String("url", part))
		return
	}
}
