// Package script produces and validates the caption script that drives a
// video: a topic, a one sentence takeaway and exactly five short captions.
package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	CaptionCount    = 5
	MaxCaptionWords = 8
)

type Script struct {
	Topic    string   `json:"topic"`
	Takeaway string   `json:"takeaway"`
	Captions []string `json:"captions"`
}

// FormatError reports a model response that does not match the script
// schema. Raw keeps the response so the caller can log or re-prompt.
type FormatError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("script format: %s: %v", e.Reason, e.Err)
	}
	return "script format: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Parse decodes a model response into a Script and validates it. Markdown
// code fences around the JSON are tolerated; anything else is rejected.
func Parse(raw string) (*Script, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, &FormatError{Reason: "empty response", Raw: raw}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, &FormatError{Reason: "decode json", Raw: raw, Err: err}
	}
	if dec.More() {
		return nil, &FormatError{Reason: "trailing data after json object", Raw: raw}
	}

	if err := s.Validate(); err != nil {
		return nil, &FormatError{Reason: err.Error(), Raw: raw}
	}
	return &s, nil
}

func (s *Script) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Topic) == "" {
		errs = append(errs, errors.New("topic is empty"))
	}
	if strings.TrimSpace(s.Takeaway) == "" {
		errs = append(errs, errors.New("takeaway is empty"))
	}
	if len(s.Captions) != CaptionCount {
		errs = append(errs, fmt.Errorf("got %d captions, want %d", len(s.Captions), CaptionCount))
	}
	for i, c := range s.Captions {
		n := len(strings.Fields(c))
		switch {
		case n == 0:
			errs = append(errs, fmt.Errorf("caption %d is empty", i+1))
		case n > MaxCaptionWords:
			errs = append(errs, fmt.Errorf("caption %d has %d words, max %d", i+1, n, MaxCaptionWords))
		}
	}
	return errors.Join(errs...)
}

func (s *Script) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
