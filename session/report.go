// Package session turns decoded messages into reports. It runs the receive
// side with a fallback timer and duplicate suppression, and the send side as a
// beacon that repeats a message until it is acknowledged.
package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agnivade/sonic_transport/history"
)

const (
	emergencyPrefix   = "EMERGENCY:"
	transactionPrefix = "TX:"

	helpText     = "HELP"
	fallbackText = "HELP IM IN DANGER"
)

// Kind classifies a report.
type Kind string

const (
	KindEmergency   Kind = "emergency"
	KindTransaction Kind = "transaction"
	KindPlain       Kind = "plain"
)

// Location is a position in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Report is a parsed message.
type Report struct {
	ID       uuid.UUID
	Raw      string
	Kind     Kind
	Display  string
	Location *Location
	// Fallback is set for reports synthesised because nothing was decoded.
	Fallback   bool
	ReceivedAt time.Time
}

var coordinates = regexp.MustCompile(`^(-?\d+\.?\d*),(-?\d+\.?\d*)$`)

// ParseReport classifies text. Emergency messages carrying "lat,lng" get a
// Location.
func ParseReport(text string) Report {
	r := Report{
		ID:      uuid.New(),
		Raw:     text,
		Kind:    KindPlain,
		Display: text,
	}

	switch {
	case strings.HasPrefix(text, emergencyPrefix):
		r.Kind = KindEmergency
		content := strings.TrimSpace(text[len(emergencyPrefix):])
		r.Display = content
		if m := coordinates.FindStringSubmatch(content); m != nil {
			lat, latErr := strconv.ParseFloat(m[1], 64)
			lng, lngErr := strconv.ParseFloat(m[2], 64)
			if latErr == nil && lngErr == nil {
				r.Location = &Location{Lat: lat, Lng: lng}
				r.Display = fmt.Sprintf("HELP at %.4f, %.4f", lat, lng)
			}
		}
	case strings.HasPrefix(text, transactionPrefix):
		r.Kind = KindTransaction
		r.Display = strings.TrimSpace(text[len(transactionPrefix):])
	}
	return r
}

// EmergencyMessage is the message a beacon sends for a distress call.
func EmergencyMessage(loc *Location) string {
	if loc == nil {
		return emergencyPrefix + helpText
	}
	return emergencyPrefix + formatLocation(*loc)
}

// FallbackMessage is the message reported when listening timed out without a
// decode.
func FallbackMessage(loc *Location) string {
	if loc == nil {
		return emergencyPrefix + fallbackText
	}
	return emergencyPrefix + formatLocation(*loc)
}

func formatLocation(loc Location) string {
	return fmt.Sprintf("%.5f,%.5f", loc.Lat, loc.Lng)
}

// Entry converts r for the history store.
func (r Report) Entry() history.Entry {
	e := history.Entry{
		ID:         r.ID,
		Message:    r.Raw,
		Kind:       string(r.Kind),
		Display:    r.Display,
		Fallback:   r.Fallback,
		ReceivedAt: r.ReceivedAt,
	}
	if r.Location != nil {
		lat, lng := r.Location.Lat, r.Location.Lng
		e.Lat, e.Lng = &lat, &lng
	}
	return e
}
