// Package history exports the current session's transcript.
package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/waychat/internal/models"
)

// ExportFormat represents the format for exporting a transcript
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseFormat maps a user supplied name to an ExportFormat.
// An empty name selects Markdown.
func ParseFormat(name string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want markdown or json)", name)
	}
}

// Extension returns the file extension for the format.
func (f ExportFormat) Extension() string {
	if f == ExportFormatJSON {
		return ".json"
	}
	return ".md"
}

// ContentType returns the MIME type used when serving the export.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// ExportOptions configures how a transcript is exported
type ExportOptions struct {
	Format        ExportFormat
	Title         string
	Model         string
	IncludeSystem bool // Include the system instruction as the first entry
	ExportedAt    time.Time
}

// DefaultExportOptions returns sensible defaults for export
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format: ExportFormatMarkdown,
		Title:  "WayChat conversation",
	}
}

// Export renders messages in the requested format.
func Export(messages []models.Message, opts ExportOptions) ([]byte, error) {
	switch opts.Format {
	case ExportFormatJSON:
		return ExportJSON(messages, opts)
	case ExportFormatMarkdown, "":
		return []byte(ExportMarkdown(messages, opts)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}
}

// ExportMarkdown renders a transcript snapshot as Markdown.
func ExportMarkdown(messages []models.Message, opts ExportOptions) string {
	messages = visible(messages, opts.IncludeSystem)

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(titleOrDefault(opts.Title))
	sb.WriteString("\n\n")

	if opts.Model != "" {
		sb.WriteString("**Model:** ")
		sb.WriteString(opts.Model)
		sb.WriteString("\n")
	}
	if !opts.ExportedAt.IsZero() {
		sb.WriteString("**Exported:** ")
		sb.WriteString(opts.ExportedAt.Format("2006-01-02 15:04:05"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n\n---\n\n", len(messages)))

	for i, msg := range messages {
		sb.WriteString("## ")
		sb.WriteString(roleHeading(msg.Role))
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportJSON renders a transcript snapshot as indented JSON.
func ExportJSON(messages []models.Message, opts ExportOptions) ([]byte, error) {
	type exportDoc struct {
		Title      string           `json:"title"`
		Model      string           `json:"model,omitempty"`
		ExportedAt *time.Time       `json:"exported_at,omitempty"`
		Messages   []models.Message `json:"messages"`
	}

	doc := exportDoc{
		Title:    titleOrDefault(opts.Title),
		Model:    opts.Model,
		Messages: visible(messages, opts.IncludeSystem),
	}
	if !opts.ExportedAt.IsZero() {
		ts := opts.ExportedAt
		doc.ExportedAt = &ts
	}
	if doc.Messages == nil {
		doc.Messages = []models.Message{}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func visible(messages []models.Message, includeSystem bool) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleSystem && !includeSystem {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func roleHeading(role models.Role) string {
	switch role {
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	default:
		return "User"
	}
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultExportOptions().Title
	}
	return title
}
