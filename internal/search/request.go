// Package search turns form input into logical backend requests and tracks
// the state of the current submission.
package search

import (
	"errors"
	"strconv"
	"strings"

	"permitdesk/internal/domain"
)

// Mode selects which backend endpoint a search uses.
type Mode int

const (
	ModeName Mode = iota
	ModeAddress
	ModeNearby
)

var modeNames = [...]string{"name", "address", "nearby"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Next cycles name -> address -> nearby -> name.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

// ParseMode parses a mode name as used on the command line.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return ModeName, errors.New("unknown search mode " + strconv.Quote(s))
}

// Status is the permit status filter.
type Status string

const (
	StatusAll      Status = "ALL"
	StatusApproved Status = "APPROVED"
	StatusExpired  Status = "EXPIRED"
)

// Statuses lists the filter values in display order.
var Statuses = []Status{StatusAll, StatusApproved, StatusExpired}

// Label is the human-readable filter name.
func (s Status) Label() string {
	switch s {
	case StatusAll, "":
		return "All Status"
	case StatusApproved:
		return "Approved"
	case StatusExpired:
		return "Expired"
	default:
		return string(s)
	}
}

// Next cycles through Statuses.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusAll
}

// ParseStatus accepts ALL, APPROVED or EXPIRED in any case.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusAll, nil
	}
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return StatusAll, errors.New("unknown status " + strconv.Quote(s))
}

// Request is one form submission.
type Request struct {
	Mode   Mode
	Query  string
	Lat    string
	Lon    string
	Status Status
}

var (
	// ErrMissingCoordinates means a nearby search lacks latitude or longitude.
	ErrMissingCoordinates = errors.New("latitude and longitude are required")

	// ErrInvalidCoordinate means a coordinate is not a number.
	ErrInvalidCoordinate = errors.New("coordinates must be numbers")
)

// Endpoints of the permit API.
const (
	EndpointPermits = "/permits"
	EndpointAddress = "/permits/address"
	EndpointNearby  = "/permits/nearby"
)

// Derive maps a submission onto an endpoint and params. An empty text query
// lists all permits; the status param is left out for ALL.
func Derive(req Request, radius string) (domain.Request, error) {
	out := domain.Request{Endpoint: EndpointPermits, Params: map[string]string{}}

	switch req.Mode {
	case ModeNearby:
		lat, lon := strings.TrimSpace(req.Lat), strings.TrimSpace(req.Lon)
		if lat == "" || lon == "" {
			return domain.Request{}, ErrMissingCoordinates
		}
		if !isNumber(lat) || !isNumber(lon) {
			return domain.Request{}, ErrInvalidCoordinate
		}
		out.Endpoint = EndpointNearby
		out.Params["lat"] = lat
		out.Params["lon"] = lon
		out.Params["radius"] = radius
	case ModeAddress:
		if q := strings.TrimSpace(req.Query); q != "" {
			out.Endpoint = EndpointAddress
			out.Params["address"] = q
		}
	default:
		if q := strings.TrimSpace(req.Query); q != "" {
			out.Params["applicant"] = q
		}
	}

	if req.Status != "" && req.Status != StatusAll {
		out.Params["status"] = string(req.Status)
	}
	return out, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
