package mutations

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/fakeapi"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/querycache"
)

func TestCheckIn_AwardsPointsAndInvalidatesUser(t *testing.T) {
	h := newHarness(t)
	user := endpoints.GetUser(fakeapi.SeedUserID)
	other := endpoints.GetUser(2)
	assert.Zero(t, load(t, h, user).Points)
	load(t, h, other)

	msg, err := h.svc.CheckIn(context.Background(), fakeapi.SeedUserID)
	require.NoError(t, err)
	assert.Equal(t, "User daily checkin successful", msg)

	snap, _ := h.store.Peek(user.Key())
	assert.True(t, snap.Stale)
	snap, _ = h.store.Peek(other.Key())
	assert.False(t, snap.Stale)
	assert.Equal(t, 10, load(t, h, user).Points)

	msg, err = h.svc.CheckIn(context.Background(), fakeapi.SeedUserID)
	require.NoError(t, err)
	assert.Equal(t, "Already checked in today", msg)
	assert.Equal(t, 10, load(t, h, user).Points)
}

func TestUpdateUserDetails_InvalidatesEveryUser(t *testing.T) {
	h := newHarness(t)
	user := endpoints.GetUser(fakeapi.SeedUserID)
	all := endpoints.GetAllUsers()
	load(t, h, user)
	load(t, h, all)
	load(t, h, endpoints.GetMyMood())

	u, err := h.svc.UpdateUserDetails(context.Background(), fakeapi.SeedUserID, household.UserDetailsPatch{
		DisplayName: household.Set("  Lex "),
		Mood:        household.Set(household.MoodKey("cozy")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lex", u.DisplayName)

	for _, key := range []querycache.Key{user.Key(), all.Key(), endpoints.GetMyMood().Key()} {
		snap, ok := h.store.Peek(key)
		require.True(t, ok, key.String())
		assert.True(t, snap.Stale, key.String())
	}
	assert.Equal(t, "Lex", load(t, h, all)[0].DisplayName)
	assert.Equal(t, household.MoodKey("cozy"), *load(t, h, endpoints.GetMyMood()).Mood)
}

func TestUpdateUserDetails_LocalValidationSendsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []household.UserDetailsPatch{
		{},
		{DisplayName: household.Null[string]()},
		{DisplayName: household.Set(" ")},
		{DisplayName: household.Set("a name that is far too long for the column")},
		{Mood: household.Set(household.MoodKey("grumpy"))},
	}
	for _, patch := range tests {
		_, err := h.svc.UpdateUserDetails(ctx, fakeapi.SeedUserID, patch)
		assert.ErrorIs(t, err, household.ErrInvalidInput)
	}
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/users/1"))
}

func TestUpdatePoints(t *testing.T) {
	h := newHarness(t)
	all := endpoints.GetAllUsers()
	load(t, h, all)

	u, err := h.svc.UpdatePoints(context.Background(), 2, 35)
	require.NoError(t, err)
	assert.Equal(t, 35, u.Points)
	snap, _ := h.store.Peek(all.Key())
	assert.True(t, snap.Stale)

	_, err = h.svc.UpdatePoints(context.Background(), 2, -5)
	assert.ErrorIs(t, err, household.ErrInvalidInput)
}

func TestCreateAndTrackHabit(t *testing.T) {
	h := newHarness(t)
	user := endpoints.GetUser(fakeapi.SeedUserID)
	load(t, h, user)

	habit, err := h.svc.CreateHabit(context.Background(), NewHabit{UserID: fakeapi.SeedUserID, Name: "Stretch"})
	require.NoError(t, err)
	assert.Equal(t, household.FrequencyDaily, habit.Frequency)
	assert.Len(t, h.api.Habits(fakeapi.SeedUserID), 1)
	snap, _ := h.store.Peek(user.Key())
	assert.True(t, snap.Stale)

	load(t, h, user)
	entry, err := h.svc.TrackHabit(context.Background(), habit.ID, fakeapi.SeedUserID, true)
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	assert.Len(t, h.api.HabitLogs(habit.ID), 1)
	snap, _ = h.store.Peek(user.Key())
	assert.True(t, snap.Stale)

	_, err = h.svc.CreateHabit(context.Background(), NewHabit{UserID: fakeapi.SeedUserID, Name: "Nap", Frequency: "hourly"})
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	_, err = h.svc.TrackHabit(context.Background(), 0, fakeapi.SeedUserID, true)
	assert.ErrorIs(t, err, household.ErrInvalidInput)

	_, err = h.svc.TrackHabit(context.Background(), habit.ID, 2, true)
	assert.ErrorIs(t, err, household.ErrValidation)
}
