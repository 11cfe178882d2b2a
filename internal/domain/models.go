package domain

import "encoding/json"

// Permit represents a single mobile food facility permit as returned by the backend
type Permit struct {
	Applicant           string   `json:"applicant"`
	Address             string   `json:"address"`
	Status              string   `json:"status"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	FacilityType        string   `json:"facilitytype,omitempty"`
	FoodItems           string   `json:"fooditems,omitempty"`
	LocationDescription string   `json:"locationdescription,omitempty"`
	ExpirationDate      string   `json:"expirationdate,omitempty"`
}

// HasLocation reports whether the permit carries both coordinates
func (p Permit) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Request is a logical request sent from a panel to the host:
// an endpoint path on the backend plus query parameters.
type Request struct {
	ID       string            `json:"id,omitempty"`
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// Outbound message types
const (
	OutboundResponse = "response"
	OutboundError    = "error"
)

// Outbound is a message posted from the host back to a panel
type Outbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ResponseMessage builds a successful outbound message
func ResponseMessage(id string, data json.RawMessage) Outbound {
	return Outbound{Type: OutboundResponse, ID: id, Data: data}
}

// ErrorMessage builds an error outbound message
func ErrorMessage(id string, msg string) Outbound {
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return Outbound{Type: OutboundError, ID: id, Error: msg}
}

// DecodePermits decodes a response payload into permits
func DecodePermits(data json.RawMessage) ([]Permit, error) {
	if len(data) == 0 || string(data) == "null" {
		return []Permit{}, nil
	}
	var permits []Permit
	if err := json.Unmarshal(data, &permits); err != nil {
		return nil, err
	}
	return permits, nil
}
