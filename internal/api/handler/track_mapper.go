package handler

import (
	"time"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
)

func toEntryResponse(e *domain.TimeEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		Category:        string(e.Category),
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationSeconds: e.DurationSeconds,
		Description:     e.Description,
	}
}

func toEntryResponsePtr(e *domain.TimeEntry) *entryResponse {
	if e == nil {
		return nil
	}
	r := toEntryResponse(e)
	return &r
}

func toStartResponse(res *ports.StartResult) startResponse {
	return startResponse{
		Success:     true,
		EntryID:     res.EntryID,
		Category:    string(res.Category),
		StartTime:   res.StartTime,
		Description: res.Description,
		Stopped:     toEntryResponsePtr(res.Stopped),
		Replayed:    res.Replayed,
	}
}

func toTotals(t domain.CategoryTotals) map[string]int64 {
	out := make(map[string]int64, len(t))
	for c, s := range t {
		out[string(c)] = s
	}
	return out
}

// toTodayResponse reports elapsed time of the running entry as of now. The
// figure is display-only and never part of the totals.
func toTodayResponse(s *domain.TodaySummary, now time.Time) todayResponse {
	resp := todayResponse{
		Success:      true,
		Date:         s.Date,
		Totals:       toTotals(s.Totals),
		TotalSeconds: s.TotalSeconds,
	}
	if s.Running != nil {
		resp.RunningEntry = &runningEntryResponse{
			entryResponse:  toEntryResponse(s.Running),
			ElapsedSeconds: s.Running.ElapsedSeconds(now),
		}
	}
	return resp
}

func toHistoryResponse(days []domain.DailySummary) historyResponse {
	resp := historyResponse{
		Success: true,
		History: make([]dayResponse, 0, len(days)),
	}
	for _, d := range days {
		entries := make([]entryResponse, 0, len(d.Entries))
		for _, e := range d.Entries {
			entries = append(entries, toEntryResponse(e))
		}
		resp.History = append(resp.History, dayResponse{
			Date:         d.Date,
			Entries:      entries,
			Totals:       toTotals(d.Totals),
			TotalSeconds: d.TotalSeconds,
		})
	}
	return resp
}
