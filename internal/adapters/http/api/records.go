package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/model"
)

// RecordsHandler serves the confirmed records.
type RecordsHandler struct {
	records RecordsProvider
	titles  Titler
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(records RecordsProvider, titles Titler) *RecordsHandler {
	return &RecordsHandler{records: records, titles: titles}
}

type recordView struct {
	Level         string    `json:"level"`
	Title         string    `json:"title"`
	Time          float64   `json:"time"`
	FormattedTime string    `json:"formatted_time"`
	Username      string    `json:"username"`
	Platform      string    `json:"platform"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (h *RecordsHandler) view(s model.Score) recordView {
	title := s.LevelID
	if h.titles != nil {
		title = h.titles.TitleOr(s.LevelID)
	}
	return recordView{
		Level:         s.LevelID,
		Title:         title,
		Time:          s.Time,
		FormattedTime: s.FormattedTime(),
		Username:      s.Username,
		Platform:      s.Platform,
		UpdatedAt:     s.UpdatedAt,
	}
}

// HandleList handles GET /records. Records are sorted by level id.
func (h *RecordsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	snap := h.records.Records()
	out := make([]recordView, 0, len(snap))
	for _, s := range snap {
		out = append(out, h.view(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /records/{level}. Bare level numbers are accepted.
func (h *RecordsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	level := catalog.Normalize(chi.URLParam(r, "level"))
	s, ok := h.records.Records()[level]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", ErrUnknownLevel)
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}
