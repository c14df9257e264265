package handler

import "time"

// errorResponse documents the envelope rendered by the central error handler.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type startRequest struct {
	Category    string `json:"category"    validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

// entryResponse keeps the field names the web client already consumes.
type entryResponse struct {
	ID              string     `json:"_id"`
	Category        string     `json:"category"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	DurationSeconds *int64     `json:"durationSeconds"`
	Description     string     `json:"description"`
}

type runningEntryResponse struct {
	entryResponse
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

type startResponse struct {
	Success     bool           `json:"success"`
	EntryID     string         `json:"entryId"`
	Category    string         `json:"category"`
	StartTime   time.Time      `json:"startTime"`
	Description string         `json:"description"`
	Stopped     *entryResponse `json:"stopped,omitempty"`
	Replayed    bool           `json:"replayed"`
}

type stopResponse struct {
	Success bool           `json:"success"`
	Entry   *entryResponse `json:"entry"`
}

type todayResponse struct {
	Success      bool                  `json:"success"`
	Date         string                `json:"date"`
	Totals       map[string]int64      `json:"totals"`
	TotalSeconds int64                 `json:"totalSeconds"`
	RunningEntry *runningEntryResponse `json:"runningEntry"`
}

type dayResponse struct {
	Date         string           `json:"date"`
	Entries      []entryResponse  `json:"entries"`
	Totals       map[string]int64 `json:"totals"`
	TotalSeconds int64            `json:"totalSeconds"`
}

type historyResponse struct {
	Success bool          `json:"success"`
	History []dayResponse `json:"history"`
}

type categoriesResponse struct {
	Success    bool     `json:"success"`
	Categories []string `json:"categories"`
}
