package model

import "strings"

// ServerFieldError is a single field-level message reported by the API.
type ServerFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ServerErrorData is the payload of a rejected submission.
type ServerErrorData struct {
	Message string             `json:"message,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	Status  int                `json:"status,omitempty"`
	Fields  []ServerFieldError `json:"fields,omitempty"`
}

// ServerError mirrors the `{data: {fields: [...]}}` error object handed to
// forms after a failed submission. It is read-only.
type ServerError struct {
	Data ServerErrorData `json:"data"`
}

func (e *ServerError) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Data.Message); msg != "" {
		return msg
	}
	if len(e.Data.Fields) > 0 {
		return "validation failed: " + e.Data.Fields[0].Field + ": " + e.Data.Fields[0].Message
	}
	return "validation failed"
}

// MessageFor returns the first message whose field matches path exactly.
func (e *ServerError) MessageFor(path string) (string, bool) {
	if e == nil {
		return "", false
	}
	path = strings.TrimSpace(path)
	for _, field := range e.Data.Fields {
		if strings.TrimSpace(field.Field) == path {
			return field.Message, true
		}
	}
	return "", false
}

// FieldMessages groups messages by their raw field identifier.
func (e *ServerError) FieldMessages() map[string][]string {
	if e == nil || len(e.Data.Fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e.Data.Fields))
	for _, field := range e.Data.Fields {
		out[field.Field] = append(out[field.Field], field.Message)
	}
	return out
}
