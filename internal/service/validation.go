package service

import (
	"strings"
	"time"
	"unicode/utf8"
)

// EntryMode selects how a new time entry receives its end time.
type EntryMode string

const (
	ModeManual EntryMode = "manual"
	ModeTimer  EntryMode = "timer"
)

const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04:05"
	TimestampLayout = DateLayout + " " + ClockLayout

	titleMinLen = 3
	titleMaxLen = 255
)

const (
	msgEndAfterStart = "The end time must be after start time."
	msgBadCategory   = "The selected category is invalid."
)

// shortClockLayout is accepted on input and normalised to ClockLayout.
const shortClockLayout = "15:04"

var updateEndLayouts = []string{
	TimestampLayout,
	DateLayout + " " + shortClockLayout,
	DateLayout + "T" + ClockLayout,
	DateLayout + "T" + shortClockLayout,
}

// CreateEntryInput is a raw time-entry submission.
type CreateEntryInput struct {
	Mode       string
	TaskID     *uint
	TaskTitle  string
	CategoryID *uint
	Date       string
	StartTime  string
	EndTime    string
}

// UpdateEntryInput sets the end of an entry and edits its parent task.
type UpdateEntryInput struct {
	TaskTitle  string
	CategoryID *uint
	EndTime    string
}

type createPlan struct {
	mode       EntryMode
	taskID     *uint
	title      string
	categoryID *uint
	start      time.Time
	end        *time.Time
}

type updatePlan struct {
	title      string
	categoryID *uint
	end        time.Time
}

// validateCreate checks shape and mode-dependent requiredness of a submission
// and combines date and clock fields into timestamps in loc.
func validateCreate(in CreateEntryInput, loc *time.Location) (createPlan, *ValidationError) {
	verr := &ValidationError{}
	plan := createPlan{
		taskID:     in.TaskID,
		categoryID: in.CategoryID,
		title:      strings.TrimSpace(in.TaskTitle),
	}

	mode := EntryMode(strings.TrimSpace(in.Mode))
	switch mode {
	case ModeManual, ModeTimer:
		plan.mode = mode
	case "":
		verr.Add("mode", "The mode field is required.")
	default:
		verr.Add("mode", "The selected mode is invalid.")
	}

	if plan.taskID == nil && plan.title == "" {
		verr.Add("task_title", "The task title field is required when task id is not present.")
	} else if plan.title != "" {
		checkTitle(verr, plan.title)
	}

	date, dateOK := parseDate(verr, in.Date)
	start, startOK := parseClock(verr, "start_time", "start time", in.StartTime)
	if dateOK && startOK {
		ts, err := time.ParseInLocation(TimestampLayout, date+" "+start, loc)
		if err != nil {
			verr.Add("start_time", "The start time field must be a valid time.")
		} else {
			plan.start = ts
		}
	}

	rawEnd := strings.TrimSpace(in.EndTime)
	switch plan.mode {
	case ModeTimer:
		if rawEnd != "" {
			verr.Add("end_time", "The end time field is prohibited in timer mode.")
		}
	case ModeManual:
		end, ok := parseClock(verr, "end_time", "end time", rawEnd)
		if !ok || plan.start.IsZero() {
			break
		}
		ts, err := time.ParseInLocation(TimestampLayout, date+" "+end, loc)
		if err != nil || !ts.After(plan.start) {
			verr.Add("end_time", msgEndAfterStart)
			break
		}
		plan.end = &ts
	}

	return plan, verr
}

// validateUpdate checks an update submission. Ordering against the stored
// start time is checked by the caller.
func validateUpdate(in UpdateEntryInput, loc *time.Location) (updatePlan, *ValidationError) {
	verr := &ValidationError{}
	plan := updatePlan{
		title:      strings.TrimSpace(in.TaskTitle),
		categoryID: in.CategoryID,
	}

	if plan.title == "" {
		verr.Add("task_title", "The task title field is required.")
	} else {
		checkTitle(verr, plan.title)
	}

	raw := strings.TrimSpace(in.EndTime)
	if raw == "" {
		verr.Add("end_time", "The end time field is required.")
		return plan, verr
	}
	end, ok := parseDateTime(raw, loc)
	if !ok {
		verr.Add("end_time", "The end time field must be a valid date.")
		return plan, verr
	}
	plan.end = end
	return plan, verr
}

func checkTitle(verr *ValidationError, title string) {
	n := utf8.RuneCountInString(title)
	switch {
	case n < titleMinLen:
		verr.Add("task_title", "The task title field must be at least 3 characters.")
	case n > titleMaxLen:
		verr.Add("task_title", "The task title field must not be greater than 255 characters.")
	}
}

func parseDate(verr *ValidationError, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		verr.Add("date", "The date field is required.")
		return "", false
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		verr.Add("date", "The date field must be a valid date.")
		return "", false
	}
	return d.Format(DateLayout), true
}

// parseClock accepts HH:mm:ss or HH:mm and returns the HH:mm:ss form.
func parseClock(verr *ValidationError, field, label, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		verr.Add(field, "The "+label+" field is required.")
		return "", false
	}
	if c, ok := NormalizeClock(raw); ok {
		return c, true
	}
	verr.Add(field, "The "+label+" field must match the format HH:mm:ss.")
	return "", false
}

// NormalizeClock parses a time of day and returns it as HH:mm:ss.
func NormalizeClock(raw string) (string, bool) {
	for _, layout := range []string{ClockLayout, shortClockLayout} {
		if len(raw) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ClockLayout), true
		}
	}
	return "", false
}

func parseDateTime(raw string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range updateEndLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
