// Package notify delivers booking decisions to requesters. Delivery is best
// effort: callers log a failed Send and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindDeclined  Kind = "declined"
)

// ErrNoRecipient is returned by a channel that has no address for the recipient.
var ErrNoRecipient = errors.New("recipient has no address on this channel")

// Message carries everything a channel needs to render a decision.
type Message struct {
	Kind Kind

	RecipientName       string
	RecipientEmail      string
	RecipientPhone      string
	RecipientTelegramID *int64

	BookingID        string
	SessionTitle     string
	CourseName       string
	OrganizationName string
	StartsAt         time.Time // zero when the date/time pair does not parse
	Date             string
	TimeLabel        string
	Mode             string
	LocationOrLink   string
	Address          string
	ContactNumber    string
	Reason           string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Subject is the one-line headline used by every channel.
func (m Message) Subject() string {
	if m.Kind == KindConfirmed {
		return fmt.Sprintf("Your demo session %q is confirmed", m.SessionTitle)
	}
	return fmt.Sprintf("Your demo session request for %q was declined", m.SessionTitle)
}

// Body renders the plain-text message shared by email and chat channels.
func (m Message) Body() string {
	var b strings.Builder

	name := m.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n%s.\n\n", name, m.Subject())

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Session", m.SessionTitle)
	line("Course", m.CourseName)
	line("Organization", m.OrganizationName)
	line("Date", m.Date)
	line("Time", m.TimeLabel)

	if m.Kind == KindConfirmed {
		line("Mode", m.Mode)
		line("Where", m.LocationOrLink)
		if m.Address != m.LocationOrLink {
			line("Address", m.Address)
		}
		line("Contact", m.ContactNumber)
	} else {
		line("Reason", m.Reason)
	}

	return b.String()
}
