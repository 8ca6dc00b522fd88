package handlers

import (
	"net/http"
)

// Kind classifies a failed request. Each kind maps to one fixed client
// message; causes stay in the server log.
type Kind int

const (
	KindUnknown Kind = iota
	KindModelUnavailable
	KindNoFilePart
	KindNoFileSelected
	KindTooLarge
	KindProcessing
	KindMethodNotAllowed
)

var kindInfo = map[Kind]struct {
	status  int
	message string
	label   string
}{
	KindUnknown:          {http.StatusInternalServerError, "An unknown error occurred", "unknown"},
	KindModelUnavailable: {http.StatusInternalServerError, "Model is not loaded. Please check server logs.", "model_unavailable"},
	KindNoFilePart:       {http.StatusBadRequest, "No file part in the request", "no_file_part"},
	KindNoFileSelected:   {http.StatusBadRequest, "No file selected for uploading", "no_file_selected"},
	KindTooLarge:         {http.StatusRequestEntityTooLarge, "File is too large", "too_large"},
	KindProcessing:       {http.StatusInternalServerError, "Error processing the image.", "processing"},
	KindMethodNotAllowed: {http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed"},
}

// Status is the HTTP status for k.
func (k Kind) Status() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message is the client-facing error text for k.
func (k Kind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return kindInfo[KindUnknown].message
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.label
	}
	return "unknown"
}

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
