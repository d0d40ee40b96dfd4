package entrypoint

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Outcome labels, also used as metric label values.
const (
	OutcomeResult          = "result"
	OutcomeValidationError = "validation_error"
	OutcomeProcessingError = "processing_error"
)

// ValidationError means the payload was malformed or missed the prompt.
// Error renders the same text the envelope carries.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "Invalid request: " + e.Message
}

// ProcessingError means the agent runtime failed. Only the message of the
// underlying failure is kept.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string {
	return "Failed to process request: " + e.Message
}

// Envelope is the response of one invocation. Exactly one of result or
// error is present in its JSON form.
type Envelope struct {
	// Result is the agent result, untouched. Decoded envelopes hold a
	// json.RawMessage.
	Result any
	// Error is the rendered error message, empty on success.
	Error string

	err error
}

func resultEnvelope(result any) Envelope {
	return Envelope{Result: result}
}

func errorEnvelope(err error) Envelope {
	switch err.(type) {
	case *ValidationError, *ProcessingError:
	default:
		err = &ProcessingError{Message: err.Error()}
	}
	return Envelope{Error: err.Error(), err: err}
}

// OK reports whether the envelope carries a result.
func (e Envelope) OK() bool {
	return e.Error == ""
}

// Err returns the *ValidationError or *ProcessingError behind a failed
// envelope, or nil on success. Decoded envelopes return a plain error.
func (e Envelope) Err() error {
	if e.OK() {
		return nil
	}
	if e.err != nil {
		return e.err
	}
	return errors.New(e.Error)
}

// Outcome classifies the envelope for logs and metrics.
func (e Envelope) Outcome() string {
	if e.OK() {
		return OutcomeResult
	}
	var ve *ValidationError
	if errors.As(e.err, &ve) {
		return OutcomeValidationError
	}
	return OutcomeProcessingError
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if !e.OK() {
		return json.Marshal(map[string]string{"error": e.Error})
	}
	return json.Marshal(map[string]any{"result": e.Result})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if msg, ok := raw["error"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			s = string(msg)
		}
		*e = Envelope{Error: s}
		return nil
	}
	result, ok := raw["result"]
	if !ok {
		return fmt.Errorf("envelope has neither result nor error")
	}
	*e = Envelope{Result: result}
	return nil
}
