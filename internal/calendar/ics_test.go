package calendar

import (
	"strings"
	"testing"
	"time"

	"game-night/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCalendar(t *testing.T) {
	start := time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC)
	events := []models.ScheduledEvent{
		{
			UID:      "abc-123@game-night",
			Title:    "Friday Night: Catan, Azul",
			Location: "Clubhouse, Room 2",
			StartsAt: start,
			EndsAt:   start.Add(3 * time.Hour),
		},
	}

	out := string(BuildCalendar("Game Night", events))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "X-WR-CALNAME:Game Night\r\n")
	assert.Contains(t, out, "UID:abc-123@game-night\r\n")
	assert.Contains(t, out, "DTSTART:20260410T190000Z\r\n")
	assert.Contains(t, out, "DTEND:20260410T220000Z\r\n")
	// Commas in text values must be escaped
	assert.Contains(t, out, "SUMMARY:Friday Night: Catan\\, Azul\r\n")
	assert.Contains(t, out, "LOCATION:Clubhouse\\, Room 2\r\n")
}

func TestBuildCalendarEmpty(t *testing.T) {
	out := string(BuildCalendar("Game Night", nil))

	assert.Contains(t, out, "BEGIN:VCALENDAR\r\n")
	assert.Contains(t, out, "END:VCALENDAR\r\n")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestBuildCalendarFoldsLongLines(t *testing.T) {
	start := time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC)
	events := []models.ScheduledEvent{
		{
			UID:         "long@game-night",
			Title:       "Marathon",
			StartsAt:    start,
			EndsAt:      start.Add(time.Hour),
			Description: strings.Repeat("all day gaming ", 20),
		},
	}

	out := string(BuildCalendar("Game Night", events))

	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, len(line), 76, "line exceeds fold limit: %q", line)
	}
	// Folded continuation lines start with a space
	assert.Contains(t, out, "\r\n ")
}

func TestNewEventUID(t *testing.T) {
	a := NewEventUID()
	b := NewEventUID()

	require.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "@game-night"))
}
