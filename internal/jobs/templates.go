// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package jobs

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

const posterBase = "https://image.tmdb.org/t/p/w185"

var funcMap = map[string]interface{}{
	"truncate": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n-1]) + "…"
	},
	"poster": func(path string) string {
		if path == "" {
			return ""
		}
		return posterBase + path
	},
	"year": func(m recommend.Recommendation) string {
		d := m.ReleaseDate
		if d == "" {
			d = m.FirstAirDate
		}
		if len(d) >= 4 {
			return d[:4]
		}
		return ""
	},
	"clock": func(rfc string) string {
		// RFC3339 in the user's zone; keep HH:MM.
		if i := strings.IndexByte(rfc, 'T'); i >= 0 && len(rfc) >= i+6 {
			return rfc[i+1 : i+6]
		}
		return rfc
	},
	"kind": func(t string) string {
		switch t {
		case tmdb.MediaTV:
			return "Series"
		case tmdb.MediaMovie:
			return "Movie"
		}
		return t
	},
}

const recommendationHTML = `<!DOCTYPE html>
<html><body style="font-family:sans-serif;color:#222">
<h2>Hi {{.Name}}, here is what to watch next</h2>
<table cellpadding="6">
{{range .Items}}<tr>
<td>{{with poster .PosterPath}}<img src="{{.}}" width="92" alt="">{{end}}</td>
<td><strong>{{.DisplayTitle}}</strong>{{with year .}} ({{.}}){{end}}<br>
<small>{{kind .MediaType}} · {{printf "%.1f" .VoteAverage}}/10</small><br>
{{truncate .Overview 220}}</td>
</tr>{{end}}
</table>
<p><small>You receive this because recommendation emails are on in your NextStream settings.</small></p>
</body></html>`

const recommendationText = `Hi {{.Name}}, here is what to watch next:
{{range .Items}}
- {{.DisplayTitle}}{{with year .}} ({{.}}){{end}}, {{kind .MediaType}}, {{printf "%.1f" .VoteAverage}}/10
{{end}}`

const digestHTML = `<!DOCTYPE html>
<html><body style="font-family:sans-serif;color:#222">
<h2>Good morning {{.Name}}, you have {{len .Events}} {{if eq (len .Events) 1}}event{{else}}events{{end}} today</h2>
<ul>
{{range .Events}}<li><strong>{{clock .Start}}</strong> {{.Title}}{{if .IsShared}} (shared){{end}}</li>
{{end}}</ul>
<p><small>You receive this because reminder emails are on in your NextStream settings.</small></p>
</body></html>`

const digestText = `Good morning {{.Name}}, your events today:
{{range .Events}}
- {{clock .Start}} {{.Title}}
{{end}}`

// Renderer renders the job emails. Parsed templates are reused across runs.
type Renderer struct {
	recHTML    *template.Template
	recText    *texttemplate.Template
	digestHTML *template.Template
	digestText *texttemplate.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{}
	var err error
	if r.recHTML, err = template.New("recommendations").Funcs(funcMap).Parse(recommendationHTML); err != nil {
		return nil, fmt.Errorf("parse recommendation html: %w", err)
	}
	if r.recText, err = texttemplate.New("recommendations").Funcs(funcMap).Parse(recommendationText); err != nil {
		return nil, fmt.Errorf("parse recommendation text: %w", err)
	}
	if r.digestHTML, err = template.New("digest").Funcs(funcMap).Parse(digestHTML); err != nil {
		return nil, fmt.Errorf("parse digest html: %w", err)
	}
	if r.digestText, err = texttemplate.New("digest").Funcs(funcMap).Parse(digestText); err != nil {
		return nil, fmt.Errorf("parse digest text: %w", err)
	}
	return r, nil
}

type recommendationData struct {
	Name  string
	Items []recommend.Recommendation
}

type digestData struct {
	Name   string
	Events []models.EventView
}

// Recommendations renders the daily recommendation email.
func (r *Renderer) Recommendations(user *models.User, items []recommend.Recommendation) (models.EmailMessage, error) {
	data := recommendationData{Name: displayName(user), Items: items}
	html, text, err := render(r.recHTML, r.recText, data)
	if err != nil {
		return models.EmailMessage{}, err
	}
	return models.EmailMessage{Subject: "Your NextStream picks for today", HTML: html, Text: text}, nil
}

// Digest renders the morning reminder email.
func (r *Renderer) Digest(user *models.User, events []models.EventView) (models.EmailMessage, error) {
	data := digestData{Name: displayName(user), Events: events}
	html, text, err := render(r.digestHTML, r.digestText, data)
	if err != nil {
		return models.EmailMessage{}, err
	}
	subject := fmt.Sprintf("You have %d events today", len(events))
	if len(events) == 1 {
		subject = "You have 1 event today"
	}
	return models.EmailMessage{Subject: subject, HTML: html, Text: text}, nil
}

func render(h *template.Template, t *texttemplate.Template, data interface{}) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
