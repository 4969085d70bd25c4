package main

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
)

// Composer renders notifications into ready-to-send messages
type Composer struct {
	tmpl       *template.Template
	settings   *Settings
	sourcePath string
}

// templateData holds the substitution placeholders for the HTML template
type templateData struct {
	ServerList template.HTML
	AppList    template.HTML
	Deadline   string
}

// NewComposer parses the notification template once for the run
func NewComposer(cfg *Config) (*Composer, error) {
	content, err := cfg.GetTemplate()
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	tmpl, err := template.New("notification").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	return &Composer{
		tmpl:       tmpl,
		settings:   cfg.Settings,
		sourcePath: cfg.Settings.Spreadsheet.Path,
	}, nil
}

// Compose builds the subject, renders the HTML body, and applies the
// attachment threshold for one recipient
func (c *Composer) Compose(n Notification) (*Message, error) {
	body, err := c.renderBody(n)
	if err != nil {
		return nil, fmt.Errorf("rendering body for %s: %w", n.Recipient, err)
	}

	msg := &Message{
		To:       n.Recipient,
		CC:       n.CCs,
		Subject:  BuildSubject(c.settings.Notification.SubjectPrefix, n.Applications, c.settings.Notification.MaxSubjectApps),
		HTMLBody: body,
	}
	if len(n.Servers) >= c.settings.Notification.AttachmentThreshold {
		msg.Attachment = c.sourcePath
	}
	return msg, nil
}

// BuildSubject joins sorted application names after the prefix, truncating to
// maxApps with an ellipsis marker when more exist
func BuildSubject(prefix string, apps []string, maxApps int) string {
	if len(apps) == 0 {
		return prefix
	}

	sorted := make([]string, len(apps))
	copy(sorted, apps)
	sort.Strings(sorted)

	truncated := false
	if maxApps > 0 && len(sorted) > maxApps {
		sorted = sorted[:maxApps]
		truncated = true
	}

	subject := prefix + ": " + strings.Join(sorted, ", ")
	if truncated {
		subject += ", …"
	}
	return subject
}

func (c *Composer) renderBody(n Notification) (string, error) {
	data := templateData{
		ServerList: htmlList(n.Servers),
		AppList:    htmlList(n.Applications),
		Deadline:   c.settings.Notification.Deadline,
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// htmlList renders items as an unordered list, escaping each item
func htmlList(items []string) template.HTML {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(template.HTMLEscapeString(item))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return template.HTML(b.String())
}
