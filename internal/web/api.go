package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"presenceanalyzer/internal/analyzer"
	"presenceanalyzer/internal/calendar"
	"presenceanalyzer/internal/directory"
	appLog "presenceanalyzer/internal/log"
	"presenceanalyzer/internal/stats"
)

// monthlyDTO is one year of GET /api/v1/monthly_hours/{id}.
type monthlyDTO struct {
	Year   int     `json:"year"`
	Months [][]any `json:"months"`
}

// handleUsers lists every user in the presence export for the dashboard
// dropdown, sorted by display name.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.presence.ListUsers(r.Context())
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	dir := s.loadDirectory(r)
	users := make([]directory.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, displayUser(dir, id))
	}
	directory.SortByName(users, s.locale)

	writeJSON(w, http.StatusOK, users)
}

// handleMeanTimeWeekday returns the mean presence time per weekday:
// [["Mon", seconds], ...].
func (s *Server) handleMeanTimeWeekday(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	means, err := s.presence.MeanByWeekday(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	rows := make([][]any, 0, len(means))
	for wd, v := range means {
		rows = append(rows, []any{stats.WeekdayAbbr(wd), v})
	}
	writeJSON(w, http.StatusOK, rows)
}

// handlePresenceWeekday returns the total presence time per weekday with a
// chart header row: [["Weekday", "Presence (s)"], ["Mon", seconds], ...].
func (s *Server) handlePresenceWeekday(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	totals, err := s.presence.TotalByWeekday(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	rows := make([][]any, 0, len(totals)+1)
	rows = append(rows, []any{"Weekday", "Presence (s)"})
	for wd, v := range totals {
		rows = append(rows, []any{stats.WeekdayAbbr(wd), v})
	}
	writeJSON(w, http.StatusOK, rows)
}

// handlePresenceFromTo returns the usual arrival and departure per weekday,
// truncated to whole seconds: [["Mon", start, end], ...].
func (s *Server) handlePresenceFromTo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	windows, err := s.presence.UsualWindow(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	rows := make([][]any, 0, len(windows))
	for wd, win := range windows {
		rows = append(rows, []any{stats.WeekdayAbbr(wd), int(win.Start), int(win.End)})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMonthlyHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	years, err := s.presence.MonthlyHours(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	out := make([]monthlyDTO, 0, len(years))
	for _, y := range years {
		dto := monthlyDTO{Year: y.Year, Months: make([][]any, 0, len(y.Months))}
		for _, m := range y.Months {
			dto.Months = append(dto.Months, []any{m.Month, m.Hours})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePresenceCalendar serves the usual weekly presence as text/calendar,
// suitable for subscribing from a calendar client.
func (s *Server) handlePresenceCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	windows, err := s.presence.UsualWindow(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	user := displayUser(s.loadDirectory(r), id)
	cal, err := calendar.WeeklyPresence(calendar.Feed{
		UserID:   id,
		Name:     user.Name,
		Windows:  windows,
		Anchor:   s.now(),
		Location: s.location,
	})
	if err != nil {
		appLog.Error("calendar build failed", err, "user_id", id)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="presence-%d.ics"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Serialize()))
}

// loadDirectory loads the user directory once for the current request.
func (s *Server) loadDirectory(r *http.Request) *directory.Directory {
	if s.users == nil {
		return nil
	}
	return s.users.Load(r.Context())
}

// displayUser resolves id through dir, falling back to "User <id>".
func displayUser(dir *directory.Directory, id int) directory.User {
	if u, ok := dir.Lookup(id); ok && u.Name != "" {
		return u
	}
	return directory.User{ID: id, Name: fmt.Sprintf("User %d", id)}
}

// pathUserID reads the {id} path segment. A non-integer id cannot name a
// user, so it is answered like an unknown one.
func pathUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		appLog.Debug("invalid user id", "id", r.PathValue("id"))
		writeError(w, http.StatusNotFound, "user not found")
		return 0, false
	}
	return id, true
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, analyzer.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to load presence data")
}
