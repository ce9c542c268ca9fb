package mutations

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/querycache"
)

// Profile limits enforced by the backend's columns.
const (
	maxDisplayName = 30
	maxTagline     = 100
)

// NewHabit is the payload of CreateHabit.
type NewHabit struct {
	UserID    int64
	Name      string
	Frequency household.HabitFrequency
}

// userTags invalidates every cached user. Profile, points and habits all
// come back on the user rows.
func userTags[R any]() func(R) []querycache.Tag {
	return fixed[R](querycache.TypeTag(endpoints.TagUser))
}

// CheckIn records the user's daily check-in on their profile, which awards
// points once per day. The answer is the server's message.
func (s *Service) CheckIn(ctx context.Context, userID int64) (string, error) {
	if err := requireIDs(map[string]int64{"userId": userID}); err != nil {
		return "", err
	}
	msg, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Message]{
		Name:        "checkin",
		Request:     call[household.Message](s, household.Request{Method: http.MethodPut, Path: fmt.Sprintf("/users/%d/checkin", userID)}),
		Invalidates: fixed[household.Message](querycache.EntityTag(endpoints.TagUser, userID)),
	})
	return msg.Message, err
}

// UpdateUserDetails changes display name, tagline or mood. Only set fields
// are sent.
func (s *Service) UpdateUserDetails(ctx context.Context, userID int64, patch household.UserDetailsPatch) (household.User, error) {
	if err := requireIDs(map[string]int64{"userId": userID}); err != nil {
		return household.User{}, err
	}
	if patch.Empty() {
		return household.User{}, fmt.Errorf("%w: nothing to update", household.ErrInvalidInput)
	}
	if patch.DisplayName.IsNull() {
		return household.User{}, fmt.Errorf("%w: display name cannot be cleared", household.ErrInvalidInput)
	}
	if name, ok := patch.DisplayName.Value(); ok {
		name = strings.TrimSpace(name)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayName {
			return household.User{}, fmt.Errorf("%w: display name must be 1-%d characters", household.ErrInvalidInput, maxDisplayName)
		}
		patch.DisplayName = household.Set(name)
	}
	if tagline, ok := patch.Tagline.Value(); ok && utf8.RuneCountInString(tagline) > maxTagline {
		return household.User{}, fmt.Errorf("%w: tagline is longer than %d characters", household.ErrInvalidInput, maxTagline)
	}
	if mood, ok := patch.Mood.Value(); ok && !mood.Valid() {
		return household.User{}, fmt.Errorf("%w: unknown mood %q", household.ErrInvalidInput, mood)
	}

	tags := []querycache.Tag{querycache.TypeTag(endpoints.TagUser)}
	if patch.Mood.IsSet() {
		tags = append(tags, querycache.TypeTag(endpoints.TagMood))
	}
	type envelope struct {
		User household.User `json:"user"`
	}
	res, _, err := mutation.Run(ctx, s.orch, mutation.Spec[envelope]{
		Name: "updateUserDetails",
		Request: call[envelope](s, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/users/%d", userID),
			Body:   patch,
		}),
		Invalidates: fixed[envelope](tags...),
	})
	return res.User, err
}

// UpdatePoints overwrites the user's point balance.
func (s *Service) UpdatePoints(ctx context.Context, userID int64, points int) (household.User, error) {
	if err := requireIDs(map[string]int64{"userId": userID}); err != nil {
		return household.User{}, err
	}
	if points < 0 {
		return household.User{}, fmt.Errorf("%w: points cannot be negative", household.ErrInvalidInput)
	}
	u, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.User]{
		Name: "updatePoints",
		Request: call[household.User](s, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/users/%d/points", userID),
			Body:   map[string]any{"points": points},
		}),
		Invalidates: userTags[household.User](),
	})
	return u, err
}

// CreateHabit starts tracking a habit for n.UserID. Frequency defaults to
// daily.
func (s *Service) CreateHabit(ctx context.Context, n NewHabit) (household.Habit, error) {
	if err := requireIDs(map[string]int64{"userId": n.UserID}); err != nil {
		return household.Habit{}, err
	}
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return household.Habit{}, fmt.Errorf("%w: habit name is required", household.ErrInvalidInput)
	}
	freq := n.Frequency
	if freq == "" {
		freq = household.FrequencyDaily
	}
	if !freq.Valid() {
		return household.Habit{}, fmt.Errorf("%w: unknown frequency %q", household.ErrInvalidInput, freq)
	}
	h, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Habit]{
		Name: "createHabit",
		Request: call[household.Habit](s, household.Request{
			Method: http.MethodPost,
			Path:   "/habits",
			Body:   map[string]any{"userId": n.UserID, "habitName": name, "frequency": freq},
		}),
		Invalidates: userTags[household.Habit](),
	})
	return h, err
}

// TrackHabit records whether userID kept habitID today.
func (s *Service) TrackHabit(ctx context.Context, habitID, userID int64, completed bool) (household.HabitLog, error) {
	if err := requireIDs(map[string]int64{"habitId": habitID, "userId": userID}); err != nil {
		return household.HabitLog{}, err
	}
	entry, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.HabitLog]{
		Name: "trackHabit",
		Request: call[household.HabitLog](s, household.Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/habits/%d/track", habitID),
			Body:   map[string]any{"userId": userID, "completed": completed},
		}),
		Invalidates: userTags[household.HabitLog](),
	})
	return entry, err
}
