package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

// TaskTotal is the time tracked against one task in a report window.
type TaskTotal struct {
	TaskID   uint
	Title    string
	Category string
	Total    time.Duration
	Running  bool
}

// DailyReport summarises one calendar day of a user's entries.
type DailyReport struct {
	Day     time.Time
	Tasks   []TaskTotal
	Total   time.Duration
	Running []model.TimeEntry
}

// ReportService builds human-readable summaries of tracked time.
type ReportService struct {
	entryRepo *repository.TimeEntryRepository
	loc       *time.Location
}

func NewReportService(entryRepo *repository.TimeEntryRepository, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{entryRepo: entryRepo, loc: loc}
}

// Daily collects entries started on now's calendar day. Running entries count
// up to now.
func (s *ReportService) Daily(ctx context.Context, userID uint, now time.Time) (*DailyReport, error) {
	local := now.In(s.loc)
	year, month, day := local.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	entries, err := s.entryRepo.ListStartedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list day entries: %w", err)
	}
	running, err := s.entryRepo.ListRunning(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list running entries: %w", err)
	}

	report := &DailyReport{Day: from, Running: running}
	byTask := make(map[uint]*TaskTotal)
	var order []uint
	for _, entry := range entries {
		total, ok := byTask[entry.TaskID]
		if !ok {
			total = &TaskTotal{TaskID: entry.TaskID}
			if entry.Task != nil {
				total.Title = entry.Task.Title
				if entry.Task.Category != nil {
					total.Category = entry.Task.Category.Name
				}
			}
			byTask[entry.TaskID] = total
			order = append(order, entry.TaskID)
		}
		d := entry.Duration(now)
		total.Total += d
		total.Running = total.Running || entry.IsRunning()
		report.Total += d
	}

	for _, id := range order {
		report.Tasks = append(report.Tasks, *byTask[id])
	}
	sort.SliceStable(report.Tasks, func(i, j int) bool {
		return report.Tasks[i].Total > report.Tasks[j].Total
	})
	return report, nil
}

// DailySummary renders Daily as Telegram HTML.
func (s *ReportService) DailySummary(ctx context.Context, userID uint, now time.Time) (string, error) {
	report, err := s.Daily(ctx, userID, now)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", report.Day.Format("02.01.2006")))

	builder.WriteString("⏱ <b>Tracked today</b>\n")
	if len(report.Tasks) == 0 {
		builder.WriteString("— nothing tracked yet\n")
	} else {
		for _, total := range report.Tasks {
			builder.WriteString(formatTaskTotal(total))
		}
		builder.WriteString(fmt.Sprintf("\nTotal: <b>%s</b>\n", FormatDuration(report.Total)))
	}

	builder.WriteString("\n▶️ <b>Running timers</b>\n")
	if len(report.Running) == 0 {
		builder.WriteString("— no running timers\n")
	} else {
		for _, entry := range report.Running {
			builder.WriteString(formatRunning(entry, now, s.loc))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatTaskTotal(total TaskTotal) string {
	var sb strings.Builder

	icon := "🟢"
	if total.Running {
		icon = "⏳"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(total.Title))))
	if name := strings.TrimSpace(total.Category); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}
	sb.WriteString(fmt.Sprintf(" · %s\n", FormatDuration(total.Total)))
	return sb.String()
}

func formatRunning(entry model.TimeEntry, now time.Time, loc *time.Location) string {
	title := ""
	if entry.Task != nil {
		title = entry.Task.Title
	}
	return fmt.Sprintf("#%d %s\n   since %s · %s\n",
		entry.ID,
		html.EscapeString(strings.TrimSpace(title)),
		entry.StartTime.In(loc).Format("2006-01-02 15:04"),
		FormatDuration(entry.Duration(now)),
	)
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
