package queryapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FallbackMessage is shown to the user when the query service cannot be reached.
const FallbackMessage = "Error encountered. Please retry"

type queryRequest struct {
	Query          string `json:"query"`
	LocalTimeStamp string `json:"localTimeStamp"`
}

// RawResponse is the loosely structured body returned by the query service.
// Chart is kept undecoded; the service normally sends a JSON document encoded
// as a string.
type RawResponse struct {
	Answer      string          `json:"answer"`
	Chart       json.RawMessage `json:"chart,omitempty"`
	ReviewImage json.RawMessage `json:"reviewImage,omitempty"`
}

type rawResponseWire struct {
	Answer      json.RawMessage `json:"answer"`
	Chart       json.RawMessage `json:"chart"`
	ReviewImage json.RawMessage `json:"reviewImage"`
}

// UnmarshalJSON accepts any JSON type for answer and chart. An answer that is
// not a string decodes as blank.
func (r *RawResponse) UnmarshalJSON(data []byte) error {
	var wire rawResponseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var answer string
	if err := json.Unmarshal(wire.Answer, &answer); err != nil {
		answer = ""
	}

	r.Answer = answer
	r.Chart = nullToEmpty(wire.Chart)
	r.ReviewImage = nullToEmpty(wire.ReviewImage)

	return nil
}

func nullToEmpty(msg json.RawMessage) json.RawMessage {
	if len(msg) == 0 || string(bytes.TrimSpace(msg)) == "null" {
		return nil
	}
	return msg
}

// Failure is the only error Dispatch returns. Message is safe to show to the user.
type Failure struct {
	Message    string
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("query failed with status %d: %v", f.StatusCode, f.Err)
	}
	return fmt.Sprintf("query failed: %v", f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
