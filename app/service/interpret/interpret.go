package interpret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moviemate/app/client/queryapi"
)

// Interpret classifies a decoded backend payload. A chart that cannot be decoded
// is logged and dropped; the answer text is always kept.
func Interpret(raw *queryapi.RawResponse) Response {
	if raw == nil {
		return TextOnly{Text: ClarificationMessage}
	}

	text := raw.Answer
	if strings.TrimSpace(text) == "" {
		text = ClarificationMessage
	}

	if len(raw.Chart) == 0 {
		return TextOnly{Text: text, ReviewImage: raw.ReviewImage}
	}

	chart, err := decodeChartField(raw.Chart)
	if err != nil {
		slog.Warn("Invalid chart data format", "error", err)
		return TextOnly{Text: text, ReviewImage: raw.ReviewImage}
	}
	if chart == nil {
		return TextOnly{Text: text, ReviewImage: raw.ReviewImage}
	}

	return TextWithChart{
		Text:        text,
		Chart:       *chart,
		ReviewImage: raw.ReviewImage,
	}
}

// FromDispatch folds the outcome of a dispatch into a Response.
func FromDispatch(raw *queryapi.RawResponse, err error) Response {
	if err == nil {
		return Interpret(raw)
	}

	var failure *queryapi.Failure
	if errors.As(err, &failure) && failure.Message != "" {
		return Failure{Reason: failure.Message, Err: err}
	}

	return Failure{Reason: queryapi.FallbackMessage, Err: err}
}

// decodeChartField unwraps the chart field, which must be a JSON string
// holding the chart document.
func decodeChartField(field json.RawMessage) (*Chart, error) {
	trimmed := bytes.TrimSpace(field)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(trimmed, &encoded); err != nil {
		return nil, fmt.Errorf("chart field is not an encoded string: %w", err)
	}

	return DecodeChart(encoded)
}

// DecodeChart decodes the JSON encoded chart field. It returns nil without an
// error when the document holds no plottable series.
func DecodeChart(encoded string) (*Chart, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}

	var doc chartDocument
	if err := json.Unmarshal([]byte(encoded), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart: %w", err)
	}

	if len(doc.Data) == 0 || doc.Data[0] == nil {
		return nil, nil
	}

	layout := make(map[string]any, len(doc.Layout)+2)
	for k, v := range doc.Layout {
		layout[k] = v
	}
	layout["autosize"] = true
	layout["responsive"] = true

	return &Chart{
		Series: doc.Data[0],
		Layout: layout,
	}, nil
}
