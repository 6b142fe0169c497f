package capability

import (
	"fmt"
	"strings"
)

type SummaryType string

const (
	SummaryTLDR      SummaryType = "tldr"
	SummaryKeyPoints SummaryType = "key-points"
	SummaryTeaser    SummaryType = "teaser"
	SummaryHeadline  SummaryType = "headline"
)

type SummaryFormat string

const (
	FormatMarkdown  SummaryFormat = "markdown"
	FormatPlainText SummaryFormat = "plain-text"
)

type SummaryLength string

const (
	LengthShort  SummaryLength = "short"
	LengthMedium SummaryLength = "medium"
	LengthLong   SummaryLength = "long"
)

// SummaryOptions scopes a summarizer session.
type SummaryOptions struct {
	Type          SummaryType   `json:"type"`
	Format        SummaryFormat `json:"format"`
	Length        SummaryLength `json:"length"`
	SharedContext string        `json:"shared_context,omitempty"`
}

// DefaultSummaryOptions mirrors what the summarize workflow asks for: plain text, medium length.
func DefaultSummaryOptions(summaryType SummaryType) SummaryOptions {
	if summaryType == "" {
		summaryType = SummaryTLDR
	}
	return SummaryOptions{
		Type:   summaryType,
		Format: FormatPlainText,
		Length: LengthMedium,
	}
}

func ParseSummaryType(raw string) (SummaryType, error) {
	switch SummaryType(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return SummaryTLDR, nil
	case SummaryTLDR:
		return SummaryTLDR, nil
	case SummaryKeyPoints, "key_points", "keypoints":
		return SummaryKeyPoints, nil
	case SummaryTeaser:
		return SummaryTeaser, nil
	case SummaryHeadline:
		return SummaryHeadline, nil
	default:
		return "", fmt.Errorf("summary type must be one of tldr, key-points, teaser, headline")
	}
}

func (o SummaryOptions) Validate() error {
	if _, err := ParseSummaryType(string(o.Type)); err != nil {
		return err
	}
	switch o.Format {
	case FormatMarkdown, FormatPlainText:
	default:
		return fmt.Errorf("summary format %q is not supported", o.Format)
	}
	switch o.Length {
	case LengthShort, LengthMedium, LengthLong:
	default:
		return fmt.Errorf("summary length %q is not supported", o.Length)
	}
	return nil
}

// Detection is one ranked language guess.
type Detection struct {
	Language   string  `json:"detected_language"`
	Confidence float64 `json:"confidence"`
}

// OperationRequest is one of TranslateRequest, DetectRequest or SummarizeRequest.
type OperationRequest interface {
	Kind() Kind
	Input() string
}

type TranslateRequest struct {
	Text string       `json:"text"`
	Pair LanguagePair `json:"pair"`
}

func (r TranslateRequest) Kind() Kind     { return KindTranslation }
func (r TranslateRequest) Input() string  { return r.Text }
func (r TranslateRequest) String() string { return r.Pair.String() }

type DetectRequest struct {
	Text string `json:"text"`
}

func (r DetectRequest) Kind() Kind    { return KindDetection }
func (r DetectRequest) Input() string { return r.Text }

type SummarizeRequest struct {
	Text    string         `json:"text"`
	Options SummaryOptions `json:"options"`
}

func (r SummarizeRequest) Kind() Kind    { return KindSummarization }
func (r SummarizeRequest) Input() string { return r.Text }

// OperationResult holds either the produced output or the failure kind, never both.
type OperationResult struct {
	Kind       Kind        `json:"kind"`
	Output     string      `json:"output,omitempty"`
	Detections []Detection `json:"detections,omitempty"`
	Failure    ErrorKind   `json:"failure,omitempty"`
}

func (r OperationResult) Succeeded() bool {
	return r.Failure == ""
}

// Top returns the authoritative detection, if any.
func (r OperationResult) Top() (Detection, bool) {
	if len(r.Detections) == 0 {
		return Detection{}, false
	}
	return r.Detections[0], true
}
