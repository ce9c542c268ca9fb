package fakeapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Risclover/toby/internal/household"
)

func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.data.household(pathID(r, "id"))
	if h == nil {
		notFound(w, "household")
		return
	}
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	hid := pathID(r, "id")
	start := parseBound(r.URL.Query().Get("start"))
	end := parseBound(r.URL.Query().Get("end"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []household.CalendarEvent{}
	for _, ev := range s.data.events {
		if ev.HouseholdID != hid {
			continue
		}
		if !end.IsZero() && !ev.Start().Before(end) {
			continue
		}
		if !start.IsZero() && !ev.End().After(start) {
			continue
		}
		out = append(out, ev)
	}
	respondJSON(w, http.StatusOK, out)
}

func parseBound(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// handleCreateEvent accepts the three creation shapes: startUtc/endUtc,
// a whole-day date, or floating startLocal/endLocal wall-clock times.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title      string `json:"title"`
		TZID       string `json:"tzid"`
		StartUTC   string `json:"startUtc"`
		EndUTC     string `json:"endUtc"`
		Date       string `json:"date"`
		StartLocal string `json:"startLocal"`
		EndLocal   string `json:"endLocal"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	var start, end time.Time
	var err error
	switch {
	case body.StartUTC != "":
		if start, err = time.Parse(time.RFC3339, body.StartUTC); err == nil {
			end, err = time.Parse(time.RFC3339, body.EndUTC)
		}
	case body.Date != "":
		if start, err = time.Parse("2006-01-02", body.Date); err == nil {
			end = start.Add(24 * time.Hour)
		}
	case body.StartLocal != "":
		if start, err = time.Parse("2006-01-02T15:04", body.StartLocal); err == nil {
			end, err = time.Parse("2006-01-02T15:04", body.EndLocal)
		}
	default:
		respondError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	if err != nil || !end.After(start) {
		respondError(w, http.StatusBadRequest, "invalid event time range")
		return
	}
	tzid := body.TZID
	if tzid == "" {
		tzid = "UTC"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hid := pathID(r, "id")
	if s.data.household(hid) == nil {
		notFound(w, "household")
		return
	}
	ev := household.CalendarEvent{
		ID:          s.data.id(),
		HouseholdID: hid,
		Title:       strings.TrimSpace(body.Title),
		StartUTC:    start.UTC().Format(time.RFC3339),
		EndUTC:      end.UTC().Format(time.RFC3339),
		TZID:        tzid,
		CreatedAt:   s.stamp(),
	}
	s.data.events = append(s.data.events, ev)
	respondJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	hid, err := strconv.ParseInt(r.URL.Query().Get("householdId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "householdId is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []household.Announcement{}
	for _, a := range s.data.announcements {
		if a.HouseholdID == hid {
			out = append(out, a)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HouseholdID int64  `json:"householdId"`
		Text        string `json:"text"`
		IsPinned    bool   `json:"isPinned"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.household(body.HouseholdID) == nil {
		respondError(w, http.StatusBadRequest, "unknown household")
		return
	}
	ts := s.stamp()
	a := household.Announcement{
		ID:          s.data.id(),
		UserID:      s.userID,
		HouseholdID: body.HouseholdID,
		Text:        strings.TrimSpace(body.Text),
		IsPinned:    body.IsPinned,
		CreatedAt:   ptr(ts),
		UpdatedAt:   ptr(ts),
	}
	s.data.announcements = append(s.data.announcements, a)
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handlePatchAnnouncement(w http.ResponseWriter, r *http.Request) {
	var patch household.AnnouncementPatch
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if text, ok := patch.Text.Value(); (ok && strings.TrimSpace(text) == "") || patch.Text.IsNull() {
		respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	idx := slices.IndexFunc(s.data.announcements, func(a household.Announcement) bool { return a.ID == id })
	if idx < 0 {
		notFound(w, "announcement")
		return
	}
	a := &s.data.announcements[idx]
	patch.ApplyTo(a)
	a.UpdatedAt = ptr(s.stamp())
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	before := len(s.data.announcements)
	s.data.announcements = slices.DeleteFunc(s.data.announcements, func(a household.Announcement) bool { return a.ID == id })
	if len(s.data.announcements) == before {
		notFound(w, "announcement")
		return
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "announcement deleted"})
}

// handleGetMood answers null when the session user has no mood set.
func (s *Server) handleGetMood(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mood, ok := s.data.moods[s.userID]
	if !ok {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, household.Mood{UserID: s.userID, Mood: &mood})
}

func (s *Server) handleSetMood(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mood household.MoodKey `json:"mood"`
	}
	if err := decode(r, &body); err != nil || !body.Mood.Valid() {
		respondError(w, http.StatusBadRequest, "unknown mood")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.moods[s.userID] = body.Mood
	respondJSON(w, http.StatusOK, household.Mood{UserID: s.userID, Mood: &body.Mood})
}

func (s *Server) handleClearMood(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.moods, s.userID)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.data.users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.data.user(pathID(r, "id"))
	if u == nil {
		notFound(w, "user")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleListCheckins(w http.ResponseWriter, r *http.Request) {
	uid := pathID(r, "id")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.user(uid) == nil {
		notFound(w, "user")
		return
	}
	dates := []string{}
	for _, d := range s.data.checkins[uid] {
		if (from == "" || d >= from) && (to == "" || d <= to) {
			dates = append(dates, d)
		}
	}
	respondJSON(w, http.StatusOK, household.Checkins{UserID: uid, From: from, To: to, Dates: dates})
}

// handleCheckIn records today for the user. Checking in twice on one day is
// not an error.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	uid := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.user(uid) == nil {
		notFound(w, "user")
		return
	}
	if uid != s.userID {
		respondError(w, http.StatusForbidden, "cannot check in for another user")
		return
	}
	today := s.now().UTC().Format("2006-01-02")
	if !slices.Contains(s.data.checkins[uid], today) {
		s.data.checkins[uid] = append(s.data.checkins[uid], today)
	}
	respondJSON(w, http.StatusOK, household.CheckInToday{CheckedInToday: true, LocalDate: today})
}
