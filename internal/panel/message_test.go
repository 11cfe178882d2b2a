package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"endpoint":"/permits/nearby","id":"abc","params":{"lat":37.7,"lon":"-122.4","radius":"1.0","status":null,"open":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", req.ID)
	assert.Equal(t, "/permits/nearby", req.Endpoint)
	assert.Equal(t, map[string]string{"lat": "37.7", "lon": "-122.4", "radius": "1.0", "open": "true"}, req.Params)
}

func TestDecodeRequestWithoutParams(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"endpoint":"/permits"}`))
	require.NoError(t, err)
	assert.Equal(t, "/permits", req.Endpoint)
	assert.Nil(t, req.Params)

	req, err = DecodeRequest([]byte(`{"endpoint":"/permits","params":null}`))
	require.NoError(t, err)
	assert.Nil(t, req.Params)
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
		id   string
	}{
		{"not json", `{endpoint`, ErrMalformedMessage, ""},
		{"not an object", `["/permits"]`, ErrMalformedMessage, ""},
		{"missing endpoint", `{"id":"r1","params":{}}`, ErrMissingEndpoint, "r1"},
		{"empty endpoint", `{"endpoint":"","id":"r2"}`, ErrMissingEndpoint, "r2"},
		{"null endpoint", `{"endpoint":null}`, ErrMissingEndpoint, ""},
		{"numeric endpoint", `{"endpoint":42}`, ErrMalformedMessage, ""},
		{"params not object", `{"endpoint":"/permits","params":"a=b","id":"r3"}`, ErrMalformedMessage, "r3"},
		{"nested param", `{"endpoint":"/permits","params":{"status":["APPROVED"]}}`, ErrMalformedMessage, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.id, req.ID)
		})
	}
	assert.Equal(t, "No endpoint specified in message", ErrMissingEndpoint.Error())
}
