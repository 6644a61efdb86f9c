package interpret

import "encoding/json"

// ClarificationMessage replaces an answer the backend left blank.
const ClarificationMessage = "Unable to answer your query. Could you try again with more information?"

// Response is one of TextOnly, TextWithChart or Failure.
type Response interface {
	Answer() string
	isResponse()
}

type TextOnly struct {
	Text        string
	ReviewImage json.RawMessage
}

type TextWithChart struct {
	Text        string
	Chart       Chart
	ReviewImage json.RawMessage
}

// Failure carries the message shown in place of an answer when dispatch failed.
type Failure struct {
	Reason string
	Err    error
}

// Chart is passed to the renderer unchanged: Series is the first plot trace and
// Layout its display parameters.
type Chart struct {
	Series map[string]any `json:"series"`
	Layout map[string]any `json:"layout"`
}

type chartDocument struct {
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

func (r TextOnly) Answer() string      { return r.Text }
func (r TextWithChart) Answer() string { return r.Text }
func (r Failure) Answer() string       { return r.Reason }

func (TextOnly) isResponse()      {}
func (TextWithChart) isResponse() {}
func (Failure) isResponse()       {}
