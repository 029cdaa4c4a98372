package graphkv

import (
	"errors"
	"fmt"
)

// ErrorCode is the status carried by errors surfaced to data source callers.
type ErrorCode string

const (
	// ReadFail means the bulk read was rejected by the store.
	ReadFail ErrorCode = "read_fail"
	// WriteFail marks a key the store failed to persist.
	WriteFail ErrorCode = "write_fail"
	// Unsupported is returned by operations the data source does not implement.
	Unsupported ErrorCode = "unsupported"
)

// ErrorType is the $type tag of error markers.
const ErrorType = "error"

// ErrNilStore is returned when a data source or decorator is constructed without a store.
var ErrNilStore = errors.New("store can't be nil")

// Error is the JSON Graph error value. Key and Detail are optional diagnostics.
type Error struct {
	Status  ErrorCode `json:"status"`
	Message string    `json:"message"`
	Key     string    `json:"key,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

func (e Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Status, e.Message)
	if e.Key != "" {
		s += fmt.Sprintf(", key: %s", e.Key)
	}
	if e.Detail != "" {
		s += fmt.Sprintf(", details: %s", e.Detail)
	}
	return s
}

// Marker wraps the error into a graph leaf.
func (e Error) Marker() ErrorMarker {
	return ErrorMarker{Type: ErrorType, Value: e}
}

// ErrorMarker is the graph leaf placed where a value could not be read or written.
type ErrorMarker struct {
	Type  string `json:"$type"`
	Value Error  `json:"value"`
}

// AsErrorMarker reports whether v is an error marker and returns its error value.
// Typed markers as well as their JSON decoded map form are recognised.
func AsErrorMarker(v any) (Error, bool) {
	switch t := v.(type) {
	case ErrorMarker:
		return t.Value, t.Type == ErrorType
	case *ErrorMarker:
		if t == nil {
			return Error{}, false
		}
		return t.Value, t.Type == ErrorType
	case map[string]any:
		if t["$type"] != ErrorType {
			return Error{}, false
		}
		val, _ := t["value"].(map[string]any)
		e := Error{}
		if s, ok := val["status"].(string); ok {
			e.Status = ErrorCode(s)
		}
		e.Message, _ = val["message"].(string)
		e.Key, _ = val["key"].(string)
		e.Detail, _ = val["detail"].(string)
		return e, true
	}
	return Error{}, false
}
