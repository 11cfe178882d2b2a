package panel

import (
	"errors"

	"github.com/tidwall/gjson"

	"permitdesk/internal/domain"
)

var (
	// ErrMissingEndpoint is returned for inbound messages without an endpoint.
	ErrMissingEndpoint = errors.New("No endpoint specified in message")

	// ErrMalformedMessage is returned for inbound messages that are not a
	// JSON object with scalar params.
	ErrMalformedMessage = errors.New("malformed message")
)

// DecodeRequest validates an inbound panel message of the form
// {"endpoint": "/permits", "params": {...}, "id": "..."}.
//
// Null params are dropped; numbers and booleans are passed on in their JSON
// text form. The returned request carries the id even when validation fails,
// so the error can be correlated.
func DecodeRequest(raw []byte) (domain.Request, error) {
	if !gjson.ValidBytes(raw) {
		return domain.Request{}, ErrMalformedMessage
	}
	msg := gjson.ParseBytes(raw)
	if !msg.IsObject() {
		return domain.Request{}, ErrMalformedMessage
	}

	var req domain.Request
	if id := msg.Get("id"); id.Type == gjson.String {
		req.ID = id.Str
	}

	endpoint := msg.Get("endpoint")
	switch endpoint.Type {
	case gjson.Null:
		return req, ErrMissingEndpoint
	case gjson.String:
		if endpoint.Str == "" {
			return req, ErrMissingEndpoint
		}
		req.Endpoint = endpoint.Str
	default:
		return req, ErrMalformedMessage
	}

	params := msg.Get("params")
	if !params.Exists() || params.Type == gjson.Null {
		return req, nil
	}
	if !params.IsObject() {
		return req, ErrMalformedMessage
	}

	req.Params = make(map[string]string)
	valid := true
	params.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
		case gjson.String:
			req.Params[key.Str] = value.Str
		case gjson.Number, gjson.True, gjson.False:
			req.Params[key.Str] = value.Raw
		default:
			valid = false
			return false
		}
		return true
	})
	if !valid {
		return req, ErrMalformedMessage
	}
	return req, nil
}
