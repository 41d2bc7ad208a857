package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/wrchecker/internal/adapters/repository"
)

const (
	defaultWeeklyLimit = 10
	maxWeeklyLimit     = 100
)

// WeeklyArchive reads finished weekly challenges, newest first.
type WeeklyArchive interface {
	WeeklyArchive(ctx context.Context, limit int) ([]repository.ArchivedWeekly, error)
}

// WeeklyHandler serves the weekly challenge archive.
type WeeklyHandler struct {
	archive WeeklyArchive
}

// NewWeeklyHandler creates a new weekly archive handler.
func NewWeeklyHandler(archive WeeklyArchive) *WeeklyHandler {
	return &WeeklyHandler{archive: archive}
}

type weeklyLevelView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Modifiers []string `json:"modifiers"`
}

type weeklyScoreView struct {
	Level         string  `json:"level"`
	Username      string  `json:"username"`
	Platform      string  `json:"platform"`
	Time          float64 `json:"time"`
	FormattedTime string  `json:"formatted_time"`
}

type weeklyView struct {
	ChallengeID string            `json:"challenge_id"`
	Name        string            `json:"name"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	Levels      []weeklyLevelView `json:"levels"`
	Finals      []weeklyScoreView `json:"finals"`
}

// HandleList handles GET /weekly?limit=N.
func (h *WeeklyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultWeeklyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", ErrInvalidLimit)
			return
		}
		limit = min(n, maxWeeklyLimit)
	}

	archived, err := h.archive.WeeklyArchive(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}

	out := make([]weeklyView, 0, len(archived))
	for _, a := range archived {
		v := weeklyView{
			ChallengeID: a.ChallengeID,
			Name:        a.Name,
			StartDate:   a.StartDate,
			EndDate:     a.EndDate,
			Levels:      make([]weeklyLevelView, 0, len(a.Levels)),
			Finals:      make([]weeklyScoreView, 0, len(a.Scores)),
		}
		for _, l := range a.Levels {
			v.Levels = append(v.Levels, weeklyLevelView{ID: l.ID, Name: l.Name, Modifiers: l.Modifiers.Strings()})
		}
		for _, s := range a.Scores {
			v.Finals = append(v.Finals, weeklyScoreView{
				Level:         s.LevelID,
				Username:      s.Username,
				Platform:      s.Platform,
				Time:          s.Time,
				FormattedTime: s.FormattedTime(),
			})
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}
