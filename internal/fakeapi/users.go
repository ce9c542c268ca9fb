package fakeapi

import (
	"net/http"
	"strings"

	"github.com/Risclover/toby/internal/household"
)

// checkinPoints is what a first check-in of the day is worth.
const checkinPoints = 10

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch household.UserDetailsPatch
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if name, ok := patch.DisplayName.Value(); patch.DisplayName.IsNull() || (ok && strings.TrimSpace(name) == "") {
		respondError(w, http.StatusBadRequest, "display name cannot be empty")
		return
	}
	mood, hasMood := patch.Mood.Value()
	if hasMood && !mood.Valid() {
		respondError(w, http.StatusBadRequest, "unknown mood")
		return
	}

	uid := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.data.user(uid)
	if u == nil {
		notFound(w, "user")
		return
	}
	patch.ApplyTo(u)
	switch {
	case hasMood:
		s.data.moods[uid] = mood
	case patch.Mood.IsNull():
		delete(s.data.moods, uid)
	}
	respondJSON(w, http.StatusOK, map[string]household.User{"user": *u})
}

// handleUserCheckin awards points once per day. A second call the same day
// answers with a message instead of an error.
func (s *Server) handleUserCheckin(w http.ResponseWriter, r *http.Request) {
	uid := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.data.user(uid)
	if u == nil {
		notFound(w, "user")
		return
	}
	today := s.now().UTC().Format("2006-01-02")
	if u.LastCheckin == nil || *u.LastCheckin != today {
		u.DailyCheckin = false
	}
	if u.DailyCheckin {
		respondJSON(w, http.StatusOK, household.Message{Message: "Already checked in today"})
		return
	}
	u.DailyCheckin = true
	u.LastCheckin = ptr(today)
	u.Points += checkinPoints
	if dates := s.data.checkins[uid]; len(dates) == 0 || dates[len(dates)-1] != today {
		s.data.checkins[uid] = append(dates, today)
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "User daily checkin successful"})
}

func (s *Server) handleSetPoints(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points *int `json:"points"`
	}
	if err := decode(r, &body); err != nil || body.Points == nil || *body.Points < 0 {
		respondError(w, http.StatusBadRequest, "points must be a non-negative number")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.data.user(pathID(r, "id"))
	if u == nil {
		notFound(w, "user")
		return
	}
	u.Points = *body.Points
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    int64                    `json:"userId"`
		Name      string                   `json:"habitName"`
		Frequency household.HabitFrequency `json:"frequency"`
	}
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Name) == "" || !body.Frequency.Valid() {
		respondError(w, http.StatusBadRequest, "habit name and a daily or weekly frequency are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.user(body.UserID) == nil {
		notFound(w, "user")
		return
	}
	h := household.Habit{
		ID:        s.data.id(),
		UserID:    body.UserID,
		Name:      strings.TrimSpace(body.Name),
		Frequency: body.Frequency,
		CreatedAt: s.stamp(),
	}
	s.data.habits = append(s.data.habits, h)
	respondJSON(w, http.StatusCreated, h)
}

func (s *Server) handleTrackHabit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    int64 `json:"userId"`
		Completed bool  `json:"completed"`
	}
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.data.habit(pathID(r, "id"))
	if h == nil {
		notFound(w, "habit")
		return
	}
	if h.UserID != body.UserID {
		respondError(w, http.StatusForbidden, "habit belongs to another user")
		return
	}
	entry := household.HabitLog{
		ID:        s.data.id(),
		HabitID:   h.ID,
		UserID:    body.UserID,
		Completed: body.Completed,
		Date:      s.now().UTC().Format("2006-01-02"),
	}
	s.data.habitLogs = append(s.data.habitLogs, entry)
	respondJSON(w, http.StatusCreated, entry)
}

// Habits returns a copy of the habits userID created.
func (s *Server) Habits(userID int64) []household.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []household.Habit
	for _, h := range s.data.habits {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out
}

// HabitLogs returns a copy of the entries recorded for habitID.
func (s *Server) HabitLogs(habitID int64) []household.HabitLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []household.HabitLog
	for _, l := range s.data.habitLogs {
		if l.HabitID == habitID {
			out = append(out, l)
		}
	}
	return out
}
