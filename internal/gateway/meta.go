package gateway

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/modes"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusView struct {
	Model       string `json:"model"`
	Ready       bool   `json:"ready"`
	ConfigError string `json:"config_error,omitempty"`
}

// handleStatus feeds the configuration banner of clients.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := statusView{}
	if s.model != nil {
		v.Model = s.model.Name()
		v.Ready = s.model.Ready()
		if err := s.model.ConfigError(); err != nil {
			v.ConfigError = err.Error()
		}
	}
	writeData(w, v)
}

// lang picks the response language from ?lang= or Accept-Language.
func (s *Server) lang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return s.catalog.Match(l)
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		return s.catalog.Match(h)
	}
	if s.ui.DefaultLanguage != "" {
		return s.catalog.Match(s.ui.DefaultLanguage)
	}
	return s.catalog.Match()
}

type modeView struct {
	ID          modes.ID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Placeholder string   `json:"placeholder"`
	Corrected   bool     `json:"corrected"`
}

type toneView struct {
	ID    modes.Tone `json:"id"`
	Label string     `json:"label"`
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	all := modes.All()
	out := make([]modeView, len(all))
	for i, m := range all {
		prefix := "mode." + string(m.ID) + "."
		out[i] = modeView{
			ID:          m.ID,
			Name:        s.catalog.T(lang, prefix+"name"),
			Description: s.catalog.T(lang, prefix+"description"),
			Placeholder: s.catalog.T(lang, prefix+"placeholder"),
			Corrected:   m.Corrected,
		}
	}
	writeData(w, out)
}

func (s *Server) handleTones(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	tones := modes.Tones()
	out := make([]toneView, len(tones))
	for i, t := range tones {
		out[i] = toneView{ID: t, Label: s.catalog.T(lang, "tone."+string(t))}
	}
	writeData(w, out)
}

type eventView struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Timestamp string             `json:"timestamp"`
	Source    events.EventSource `json:"source"`
	Payload   map[string]any     `json:"payload"`
}

// handleEvents lists the recent conversation events of the caller.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	user := userFrom(r.Context())

	result := []eventView{}
	for _, e := range s.bus.History(math.MaxInt) {
		if e.UserID != user.ID || e.Type == events.EventAuthChanged {
			continue
		}
		result = append(result, eventView{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		})
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	writeData(w, result)
}
