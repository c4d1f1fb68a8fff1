package calendar

import (
	"strings"
	"time"

	"game-night/internal/models"

	"github.com/google/uuid"
)

const icsTimeLayout = "20060102T150405Z"

// NewEventUID returns a globally unique identifier for a scheduled
// event, assigned once at creation so calendar subscribers see updates
// instead of duplicates.
func NewEventUID() string {
	return uuid.NewString() + "@game-night"
}

// BuildCalendar renders scheduled events as an iCalendar document
// suitable for subscription feeds (RFC 5545).
func BuildCalendar(calendarName string, events []models.ScheduledEvent) []byte {
	var b strings.Builder

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:-//game-night//event calendar//EN")
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	writeLine(&b, "X-WR-CALNAME:"+escapeText(calendarName))

	now := time.Now().UTC().Format(icsTimeLayout)
	for _, event := range events {
		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, "UID:"+event.UID)
		writeLine(&b, "DTSTAMP:"+now)
		writeLine(&b, "DTSTART:"+event.StartsAt.UTC().Format(icsTimeLayout))
		writeLine(&b, "DTEND:"+event.EndsAt.UTC().Format(icsTimeLayout))
		writeLine(&b, "SUMMARY:"+escapeText(event.Title))
		if event.Location != "" {
			writeLine(&b, "LOCATION:"+escapeText(event.Location))
		}
		if event.Description != "" {
			writeLine(&b, "DESCRIPTION:"+escapeText(event.Description))
		}
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "END:VCALENDAR")
	return []byte(b.String())
}

// writeLine appends a content line, folding at 75 octets per RFC 5545.
func writeLine(b *strings.Builder, line string) {
	const maxLen = 75
	for len(line) > maxLen {
		b.WriteString(line[:maxLen])
		b.WriteString("\r\n ")
		line = line[maxLen:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

// escapeText escapes reserved characters in ICS text values.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}
