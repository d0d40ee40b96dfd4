package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"
)

// maxErrorMessage bounds raw error bodies quoted in provider errors, in bytes.
const maxErrorMessage = 500

// maxSSELine bounds a single SSE line; tool-call argument chunks can be long.
const maxSSELine = 1 << 20

// serverSentEventScanner reads Server-Sent Events from a stream.
type serverSentEventScanner struct {
	scanner *bufio.Scanner
	data    string
}

// newServerSentEventScanner creates a new SSE scanner.
func newServerSentEventScanner(r io.Reader) *serverSentEventScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &serverSentEventScanner{scanner: sc}
}

// Next advances to the next "data:" line and reports whether one was found.
// Comments, event names and blank separators are skipped.
func (s *serverSentEventScanner) Next() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		s.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		return true
	}
	return false
}

// Data returns the payload of the last data line.
func (s *serverSentEventScanner) Data() string {
	return s.data
}

// Err returns the first non-EOF read error.
func (s *serverSentEventScanner) Err() error {
	return s.scanner.Err()
}

// parseJSONSchema converts a JSON schema string to raw JSON. Invalid or empty
// schemas become an empty object schema so the request stays well formed.
func parseJSONSchema(schemaStr string) json.RawMessage {
	if schemaStr == "" || !json.Valid([]byte(schemaStr)) {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return json.RawMessage(schemaStr)
}

// errorMessage pulls a human-readable message out of an error body,
// falling back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
