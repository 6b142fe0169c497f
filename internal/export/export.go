// Package export serializes the workspace snapshot into downloadable files.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/workflow"
)

// DefaultPrefix starts every export filename.
const DefaultPrefix = "ai-results"

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "txt", "text", "plain":
		return FormatText, nil
	default:
		return "", fmt.Errorf("export format must be one of json, csv, txt")
	}
}

func (f Format) MIMEType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/plain"
	}
}

// Artifact is one rendered export.
type Artifact struct {
	Content  []byte
	Filename string
	MIMEType string
}

// Bundle is the JSON document: the snapshot plus the export time.
type Bundle struct {
	ExportedAt time.Time `json:"exported_at"`
	workflow.Snapshot
}

// Exporter renders snapshots. The zero value uses DefaultPrefix.
type Exporter struct {
	Prefix string
}

// Export renders snapshot in format. It never fails: unknown formats fall back
// to plain text and empty snapshots produce files with empty fields.
func (e Exporter) Export(format Format, snapshot workflow.Snapshot, now time.Time) Artifact {
	if format != FormatJSON && format != FormatCSV {
		format = FormatText
	}
	snapshot = normalize(snapshot)

	var content []byte
	switch format {
	case FormatJSON:
		content = renderJSON(snapshot, now)
	case FormatCSV:
		content = renderCSV(snapshot)
	default:
		content = renderText(snapshot, now)
	}

	return Artifact{
		Content:  content,
		Filename: e.Filename(format, now),
		MIMEType: format.MIMEType(),
	}
}

// Filename is <prefix>-<unix millis>.<ext>.
func (e Exporter) Filename(format Format, now time.Time) string {
	prefix := strings.TrimSpace(e.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s-%d.%s", prefix, now.UnixMilli(), format)
}

// normalize replaces nil lists with empty ones and non-finite confidences with
// zero so every snapshot encodes.
func normalize(snapshot workflow.Snapshot) workflow.Snapshot {
	detections := make([]capability.Detection, len(snapshot.Detection.Detections))
	for i, detection := range snapshot.Detection.Detections {
		if math.IsNaN(detection.Confidence) || math.IsInf(detection.Confidence, 0) {
			detection.Confidence = 0
		}
		detections[i] = detection
	}
	snapshot.Detection.Detections = detections
	if snapshot.Batch.Items == nil {
		snapshot.Batch.Items = []workflow.BatchItem{}
	}
	return snapshot
}

func renderJSON(snapshot workflow.Snapshot, now time.Time) []byte {
	content, err := json.MarshalIndent(Bundle{ExportedAt: now.UTC(), Snapshot: snapshot}, "", "  ")
	if err != nil {
		// Every field is a string, finite number or bool after normalize.
		panic(fmt.Sprintf("marshal export bundle: %v", err))
	}
	return append(content, '\n')
}

// renderCSV quotes every field without escaping embedded quotes, so a field
// containing `"` produces a malformed row.
func renderCSV(snapshot workflow.Snapshot) []byte {
	rows := [][4]string{
		{"Type", "Input", "Output", "Language/Settings"},
		{"Translation", snapshot.Translation.Input, snapshot.Translation.Output, pairLabel(snapshot.Translation)},
		{"Detection", snapshot.Detection.Input, snapshot.Detection.Output, detectionLabel(snapshot.Detection)},
		{"Summary", snapshot.Summary.Input, snapshot.Summary.Output, snapshot.Summary.SummaryType},
	}

	var buf bytes.Buffer
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(field)
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

var textTemplate = template.Must(template.New("export").Parse(`AI Capabilities Results
Exported: {{.ExportedAt}}

=== Translation ({{.Pair}}) ===
Input: {{.Snapshot.Translation.Input}}
Output: {{.Snapshot.Translation.Output}}

=== Language Detection ===
Input: {{.Snapshot.Detection.Input}}
Result: {{.Snapshot.Detection.Output}}

=== Summary ({{.Snapshot.Summary.SummaryType}}) ===
Input: {{.Snapshot.Summary.Input}}
Output: {{.Snapshot.Summary.Output}}
{{- if .Snapshot.Batch.Items}}

=== Batch Translation ({{.BatchPair}}) ===
{{- range .Snapshot.Batch.Items}}
{{.Index}}. {{.Input}} => {{.Output}}
{{- end}}
{{- end}}
`))

func renderText(snapshot workflow.Snapshot, now time.Time) []byte {
	var buf bytes.Buffer
	err := textTemplate.Execute(&buf, map[string]any{
		"ExportedAt": now.UTC().Format(time.RFC3339),
		"Pair":       pairLabel(snapshot.Translation),
		"BatchPair":  arrow(snapshot.Batch.SourceLang, snapshot.Batch.TargetLang),
		"Snapshot":   snapshot,
	})
	if err != nil {
		panic(fmt.Sprintf("render export template: %v", err))
	}
	return buf.Bytes()
}

func pairLabel(record workflow.TranslationRecord) string {
	return arrow(record.SourceLang, record.TargetLang)
}

func arrow(source, target string) string {
	if source == "" && target == "" {
		return ""
	}
	return source + " → " + target
}

func detectionLabel(record workflow.DetectionRecord) string {
	if len(record.Detections) == 0 {
		return ""
	}
	top := record.Detections[0]
	return fmt.Sprintf("%s (%.1f%%)", top.Language, top.Confidence*100)
}
