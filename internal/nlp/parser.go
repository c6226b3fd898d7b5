// Package nlp provides best-effort natural-language extraction of schedule
// times, durations, and recurrence rules from task descriptions.
package nlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/ngrabbs/schedule-manager/internal/model"
)

var (
	relativeRe = regexp.MustCompile(`in\s+(\d+)\s+(minutes?|min|hours?|hr|days?)`)
	timeRe     = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	hourRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)`)
	minuteRe   = regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m)`)
)

// weekdays maps every accepted token to a weekday, in lookup order. Longer
// names come before their abbreviations so "monday" wins over "mon".
var weekdays = []struct {
	token string
	day   time.Weekday
}{
	{"monday", time.Monday}, {"mon", time.Monday},
	{"tuesday", time.Tuesday}, {"tue", time.Tuesday}, {"tues", time.Tuesday},
	{"wednesday", time.Wednesday}, {"wed", time.Wednesday},
	{"thursday", time.Thursday}, {"thu", time.Thursday}, {"thur", time.Thursday}, {"thurs", time.Thursday},
	{"friday", time.Friday}, {"fri", time.Friday},
	{"saturday", time.Saturday}, {"sat", time.Saturday},
	{"sunday", time.Sunday}, {"sun", time.Sunday},
}

// recurrenceDays pairs the canonical weekday abbreviations with their full
// names, Monday first, for recurrence extraction.
var recurrenceDays = []struct {
	abbrev string
	name   string
}{
	{"mon", "monday"},
	{"tue", "tuesday"},
	{"wed", "wednesday"},
	{"thu", "thursday"},
	{"fri", "friday"},
	{"sat", "saturday"},
	{"sun", "sunday"},
}

// DefaultHour is the clock hour applied to day references without an
// explicit time of day.
const DefaultHour = 9

// Parser extracts schedule information from free text relative to a fixed
// timezone. All methods are best-effort: an unparseable input yields
// "no value", never an error.
type Parser struct {
	loc   *time.Location
	fuzzy *when.Parser
}

// NewParser creates a parser for the given IANA timezone.
func NewParser(timezone string) (*Parser, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	fuzzy := when.New(nil)
	fuzzy.Add(en.All...)
	fuzzy.Add(common.All...)

	return &Parser{loc: loc, fuzzy: fuzzy}, nil
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// ParseTime extracts a schedule time from the text relative to base.
// Heuristics run in priority order: relative offsets ("in 2 hours"),
// "tomorrow", "today" with a clock time, weekday references (optionally
// forced into next week by "next"), then a generic fuzzy parse. Returns
// ok=false when nothing resolves; callers treat that as "unscheduled".
func (p *Parser) ParseTime(text string, base time.Time) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	base = base.In(p.loc)

	if t, ok := p.parseRelative(text, base); ok {
		return t, true
	}
	if t, ok := p.parseDayReference(text, base); ok {
		return t, true
	}

	r, err := p.fuzzy.Parse(text, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time.In(p.loc), true
}

// parseRelative handles "in N minutes/hours/days", "tomorrow", and "today".
func (p *Parser) parseRelative(text string, base time.Time) (time.Time, bool) {
	if m := relativeRe.FindStringSubmatch(text); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err == nil {
			switch {
			case strings.HasPrefix(m[2], "min"):
				return base.Add(time.Duration(amount) * time.Minute), true
			case strings.HasPrefix(m[2], "hour"), strings.HasPrefix(m[2], "hr"):
				return base.Add(time.Duration(amount) * time.Hour), true
			case strings.HasPrefix(m[2], "day"):
				return base.AddDate(0, 0, amount), true
			}
		}
	}

	if strings.Contains(text, "tomorrow") {
		tomorrow := base.AddDate(0, 0, 1)
		hour, minute := DefaultHour, 0
		if h, m, ok := p.extractClock(text); ok {
			hour, minute = h, m
		}
		return atClock(tomorrow, hour, minute), true
	}

	// "today" only resolves with an explicit clock time; otherwise fall
	// through to the remaining heuristics.
	if strings.Contains(text, "today") {
		if h, m, ok := p.extractClock(text); ok {
			return atClock(base, h, m), true
		}
	}

	return time.Time{}, false
}

// parseDayReference handles weekday names: "friday", "next monday". A bare
// weekday always lands within the next 1-7 days, never today; "next" pushes
// a same-week result into the following week.
func (p *Parser) parseDayReference(text string, base time.Time) (time.Time, bool) {
	for _, wd := range weekdays {
		if !strings.Contains(text, wd.token) {
			continue
		}

		daysAhead := int(wd.day - base.Weekday())
		if daysAhead <= 0 {
			daysAhead += 7
		}
		if strings.Contains(text, "next") && daysAhead < 7 {
			daysAhead += 7
		}

		target := base.AddDate(0, 0, daysAhead)
		hour, minute := DefaultHour, 0
		if h, m, ok := p.extractClock(text); ok {
			hour, minute = h, m
		}
		return atClock(target, hour, minute), true
	}
	return time.Time{}, false
}

// extractClock pulls a time-of-day token ("3pm", "14:30", "10:00am") out of
// the text. A bare hour over 23 with no meridiem is rejected.
func (p *Parser) extractClock(text string) (hour, minute int, ok bool) {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return 0, 0, false
		}
	}

	meridiem := m[3]
	switch {
	case strings.HasPrefix(meridiem, "p") && hour < 12:
		hour += 12
	case strings.HasPrefix(meridiem, "a") && hour == 12:
		hour = 0
	}

	if meridiem == "" && hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ParseDuration extracts a duration in minutes, summing hour and minute
// quantities found anywhere in the text ("2h 30m" -> 150). Fractional hours
// truncate to whole minutes. Defaults to 30 when nothing matches.
func (p *Parser) ParseDuration(text string) int {
	text = strings.ToLower(text)
	total := 0

	if m := hourRe.FindStringSubmatch(text); m != nil {
		if hours, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += int(hours * 60)
		}
	}
	if m := minuteRe.FindStringSubmatch(text); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			total += minutes
		}
	}

	if total <= 0 {
		return 30
	}
	return total
}

// ParseRecurrence detects a recurrence pattern: "daily"/"every day",
// "weekday(s)", or an explicit weekday list ("mon, wed, fri at 12:00").
// Returns nil when the text has no recurrence.
func (p *Parser) ParseRecurrence(text string) *model.RecurrenceRule {
	text = strings.ToLower(text)

	if strings.Contains(text, "daily") || strings.Contains(text, "every day") {
		return &model.RecurrenceRule{
			Days: []string{model.RecurrenceDayAll},
			Time: p.extractClockString(text),
		}
	}

	if strings.Contains(text, "weekday") {
		return &model.RecurrenceRule{
			Days: []string{"mon", "tue", "wed", "thu", "fri"},
			Time: p.extractClockString(text),
		}
	}

	var days []string
	for _, d := range recurrenceDays {
		if strings.Contains(text, d.abbrev) || strings.Contains(text, d.name) {
			days = append(days, d.abbrev)
		}
	}
	if len(days) == 0 {
		return nil
	}
	return &model.RecurrenceRule{
		Days: days,
		Time: p.extractClockString(text),
	}
}

func (p *Parser) extractClockString(text string) string {
	h, m, ok := p.extractClock(text)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// WeekdayToken returns the canonical three-letter token for a weekday.
func WeekdayToken(d time.Weekday) string {
	return [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}[d]
}

func atClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
