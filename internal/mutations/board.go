package mutations

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/propagate"
	"github.com/Risclover/toby/internal/querycache"
)

// CreateEvent adds a calendar event for the timing variant in n.
func (s *Service) CreateEvent(ctx context.Context, n household.NewEvent) (household.CalendarEvent, error) {
	if err := requireIDs(map[string]int64{"householdId": n.HouseholdID}); err != nil {
		return household.CalendarEvent{}, err
	}
	req, err := n.Request()
	if err != nil {
		return household.CalendarEvent{}, err
	}
	ev, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.CalendarEvent]{
		Name:        "createEvent",
		Request:     call[household.CalendarEvent](s, req),
		Invalidates: fixed[household.CalendarEvent](querycache.HouseholdTag(endpoints.TagCalendar, n.HouseholdID)),
	})
	return ev, err
}

func announcementTags(id int64) []querycache.Tag {
	return []querycache.Tag{
		querycache.EntityTag(endpoints.TagAnnouncement, id),
		querycache.ListTag(endpoints.TagAnnouncement),
	}
}

// CreateAnnouncement posts to the household board.
func (s *Service) CreateAnnouncement(ctx context.Context, householdID int64, text string, pinned bool) (household.Announcement, error) {
	if err := requireIDs(map[string]int64{"householdId": householdID}); err != nil {
		return household.Announcement{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return household.Announcement{}, fmt.Errorf("%w: text is required", household.ErrInvalidInput)
	}
	a, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Announcement]{
		Name: "createAnnouncement",
		Request: call[household.Announcement](s, household.Request{
			Method: http.MethodPost,
			Path:   "/announcements/",
			Body:   map[string]any{"householdId": householdID, "text": text, "isPinned": pinned},
		}),
		Invalidates: fixed[household.Announcement](querycache.ListTag(endpoints.TagAnnouncement)),
	})
	return a, err
}

// UpdateAnnouncement applies a sparse patch, shown at once in the
// household's announcement list.
func (s *Service) UpdateAnnouncement(ctx context.Context, householdID, id int64, patch household.AnnouncementPatch) (household.Announcement, error) {
	if err := requireIDs(map[string]int64{"announcementId": id}); err != nil {
		return household.Announcement{}, err
	}
	a, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Announcement]{
		Name: "updateAnnouncement",
		Patches: patches(s, propagate.KindUpdateAnnouncement, propagate.AnnouncementChange{
			ID: id, HouseholdID: householdID, Patch: patch,
		}),
		Request: call[household.Announcement](s, household.Request{
			Method: http.MethodPatch,
			Path:   fmt.Sprintf("/announcements/%d", id),
			Body:   patch,
		}),
		Invalidates: fixed[household.Announcement](announcementTags(id)...),
	})
	return a, err
}

// DeleteAnnouncement removes an announcement.
func (s *Service) DeleteAnnouncement(ctx context.Context, householdID, id int64) error {
	if err := requireIDs(map[string]int64{"announcementId": id}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:        "deleteAnnouncement",
		Patches:     patches(s, propagate.KindDeleteAnnouncement, propagate.AnnouncementChange{ID: id, HouseholdID: householdID}),
		Request:     s.send(household.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/announcements/%d", id)}),
		Invalidates: fixed[struct{}](announcementTags(id)...),
	})
	return err
}

// SetMyMood sets the caller's mood.
func (s *Service) SetMyMood(ctx context.Context, mood household.MoodKey) (household.Mood, error) {
	if !mood.Valid() {
		return household.Mood{}, fmt.Errorf("%w: unknown mood %q", household.ErrInvalidInput, mood)
	}
	m, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Mood]{
		Name:    "setMyMood",
		Patches: patches(s, propagate.KindSetMood, propagate.MoodChange{Mood: &mood}),
		Request: call[household.Mood](s, household.Request{
			Method: http.MethodPut,
			Path:   "/moods/me",
			Body:   map[string]any{"mood": mood},
		}),
		Invalidates: fixed[household.Mood](querycache.TypeTag(endpoints.TagMood)),
	})
	return m, err
}

// ClearMyMood removes the caller's mood.
func (s *Service) ClearMyMood(ctx context.Context) error {
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:        "clearMyMood",
		Request:     s.send(household.Request{Method: http.MethodDelete, Path: "/moods/me"}),
		Invalidates: fixed[struct{}](querycache.TypeTag(endpoints.TagMood)),
	})
	return err
}

// CheckInToday records today's check-in for userID.
func (s *Service) CheckInToday(ctx context.Context, userID int64) (household.CheckInToday, error) {
	if err := requireIDs(map[string]int64{"userId": userID}); err != nil {
		return household.CheckInToday{}, err
	}
	res, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.CheckInToday]{
		Name: "checkInToday",
		Request: call[household.CheckInToday](s, household.Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/users/%d/checkins", userID),
		}),
		Invalidates: fixed[household.CheckInToday](querycache.UserTag(endpoints.TagCheckins, userID)),
	})
	return res, err
}
