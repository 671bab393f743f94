package sbs

import (
	"strconv"
	"strings"
)

// Field positions in a BaseStation (SBS-1) MSG line.
const (
	fieldMessageType  = 0
	fieldTransmission = 1
	fieldSessionID    = 2
	fieldAircraftID   = 3
	fieldHexIdent     = 4
	fieldFlightID     = 5
	fieldDateGen      = 6
	fieldTimeGen      = 7
	fieldDateLogged   = 8
	fieldTimeLogged   = 9
	fieldCallsign     = 10
	fieldAltitude     = 11
	fieldGroundSpeed  = 12
	fieldTrack        = 13
	fieldLatitude     = 14
	fieldLongitude    = 15
	fieldVerticalRate = 16
	fieldSquawk       = 17

	// MSG lines carry 22 comma separated fields; anything shorter is rejected.
	minFields = 22
)

// Message is the decoded form of one MSG line. HexIdent is always set; every
// other field is nil when the source line left its column empty or carried a
// value that does not parse as the expected type.
type Message struct {
	Transmission *int
	SessionID    *string
	AircraftID   *string
	HexIdent     string
	FlightID     *string
	DateGen      *string
	TimeGen      *string
	DateLogged   *string
	TimeLogged   *string
	Callsign     *string
	Altitude     *int
	GroundSpeed  *int
	Track        *int
	Latitude     *float64
	Longitude    *float64
	VerticalRate *int
	Squawk       *string
}

// ParseMessage decodes one line of the feed. It returns ok=false for anything
// other than a well-formed MSG line: other line types (AIR, ID, STA, SEL),
// short lines, and lines without a hex ident. A single malformed field never
// rejects the whole line; that field is simply absent from the result.
func ParseMessage(line string) (*Message, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < minFields {
		return nil, false
	}
	if fields[fieldMessageType] != "MSG" {
		return nil, false
	}

	hexIdent := strings.TrimSpace(fields[fieldHexIdent])
	if hexIdent == "" {
		return nil, false
	}

	return &Message{
		Transmission: optInt(fields[fieldTransmission]),
		SessionID:    optString(fields[fieldSessionID]),
		AircraftID:   optString(fields[fieldAircraftID]),
		HexIdent:     hexIdent,
		FlightID:     optString(fields[fieldFlightID]),
		DateGen:      optString(fields[fieldDateGen]),
		TimeGen:      optString(fields[fieldTimeGen]),
		DateLogged:   optString(fields[fieldDateLogged]),
		TimeLogged:   optString(fields[fieldTimeLogged]),
		Callsign:     optString(fields[fieldCallsign]),
		Altitude:     optInt(fields[fieldAltitude]),
		GroundSpeed:  optInt(fields[fieldGroundSpeed]),
		Track:        optInt(fields[fieldTrack]),
		Latitude:     optFloat(fields[fieldLatitude]),
		Longitude:    optFloat(fields[fieldLongitude]),
		VerticalRate: optInt(fields[fieldVerticalRate]),
		Squawk:       optString(fields[fieldSquawk]),
	}, true
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
