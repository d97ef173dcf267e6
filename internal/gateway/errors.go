package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Kind classifies a gateway error. Every error leaving this package carries
// exactly one kind; callers switch on it instead of inspecting payloads.
type Kind int

const (
	// KindUnknown covers anything the decoder could not classify
	KindUnknown Kind = iota
	// KindAuthExpired means the credential was rejected; the session must reset
	KindAuthExpired
	// KindConflict means the requested state already holds (follow/unfollow)
	KindConflict
	// KindValidation means the server rejected the request as malformed
	KindValidation
	// KindNotFound means the addressed resource does not exist
	KindNotFound
	// KindNetwork means the call never produced an HTTP response
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuthExpired:
		return "auth_expired"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the single error type produced at the gateway boundary.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gateway: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsAuthExpired reports whether err is an authentication failure.
func IsAuthExpired(err error) bool { return KindOf(err) == KindAuthExpired }

// IsConflict reports whether err is an already-in-that-state conflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// errorBody covers the payload shapes the backend has been observed to emit.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeError converts a non-2xx response into a tagged *Error. This is the
// only place response error payloads are parsed.
func decodeError(resp *http.Response) *Error {
	msg := http.StatusText(resp.StatusCode)

	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil && len(raw) > 0 {
		var body errorBody
		if err := json.Unmarshal(raw, &body); err == nil {
			if body.Error != "" {
				msg = body.Error
			} else if body.Message != "" {
				msg = body.Message
			}
		}
	}

	kind := KindUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindAuthExpired
	case resp.StatusCode == http.StatusConflict:
		kind = KindConflict
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnprocessableEntity:
		kind = KindValidation
	}

	return &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
}

// netError wraps a transport-level failure (no HTTP response at all).
func netError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error()}
}
