package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auravox/internal/chat"
)

var fixedNow = time.Date(2026, 3, 14, 15, 45, 0, 0, time.UTC)

func at(offset time.Duration) time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC).Add(offset)
}

func msg(user string, created time.Time) chat.Message {
	return chat.Message{UserID: user, Role: chat.RoleUser, CreatedAt: created}
}

func TestComputeWindows(t *testing.T) {
	profiles := []chat.Profile{
		{ID: "u1", Email: "one@example.com", CreatedAt: at(2 * time.Hour)},
		{ID: "u2", Email: "two@example.com", CreatedAt: at(-3 * day)},
		{ID: "u3", CreatedAt: at(-20 * day)},
		{ID: "u4", CreatedAt: at(-90 * day)},
	}
	conversations := []chat.Conversation{
		{ID: "c1", CreatedAt: at(time.Hour)},
		{ID: "c2", CreatedAt: at(-6 * day)},
	}
	messages := []chat.Message{
		msg("u1", at(9*time.Hour)),
		msg("u1", at(9*time.Hour+30*time.Minute)),
		msg("u2", at(-time.Minute)),
		msg("u3", at(-10*day)),
		msg("u3", at(-40*day)),
	}

	report := Compute(fixedNow, profiles, conversations, messages)

	assert.Equal(t, UserStats{
		TotalUsers:           4,
		ActiveUsersToday:     1,
		ActiveUsersThisWeek:  2,
		ActiveUsersThisMonth: 3,
		NewUsersToday:        1,
		NewUsersThisWeek:     2,
		NewUsersThisMonth:    3,
	}, report.Users)

	assert.Equal(t, 5, report.Messages.TotalMessages)
	assert.Equal(t, 2, report.Messages.MessagesToday)
	assert.Equal(t, 3, report.Messages.MessagesThisWeek)
	assert.Equal(t, 4, report.Messages.MessagesThisMonth)
	assert.InDelta(t, 1.25, report.Messages.AverageMessagesPerUser, 1e-9)
	assert.InDelta(t, 2.5, report.Messages.AverageMessagesPerConversation, 1e-9)

	assert.Equal(t, 2, report.Conversations.TotalConversations)
	assert.Equal(t, 1, report.Conversations.ConversationsToday)
	assert.Equal(t, 2, report.Conversations.ConversationsThisWeek)
	assert.InDelta(t, 2.5, report.Conversations.AverageConversationLength, 1e-9)
}

func TestComputeBuckets(t *testing.T) {
	messages := []chat.Message{
		msg("u1", at(9*time.Hour)),
		msg("u1", at(9*time.Hour+59*time.Minute)),
		msg("u2", at(10*time.Hour)),
		msg("u2", at(-time.Minute)),
		msg("u2", at(-6*day)),
		msg("u2", at(-7*day)),
	}

	report := Compute(fixedNow, nil, nil, messages)

	require.Len(t, report.Activity.Hourly, 24)
	assert.Equal(t, "09:00", report.Activity.Hourly[9].Label)
	assert.Equal(t, 2, report.Activity.Hourly[9].Count)
	assert.Equal(t, 1, report.Activity.Hourly[10].Count)
	assert.Equal(t, 0, report.Activity.Hourly[0].Count)

	require.Len(t, report.Activity.Daily, 7)
	assert.Equal(t, "Mar 8", report.Activity.Daily[0].Label)
	assert.Equal(t, 1, report.Activity.Daily[0].Count)
	assert.Equal(t, "Mar 13", report.Activity.Daily[5].Label)
	assert.Equal(t, 1, report.Activity.Daily[5].Count)
	assert.Equal(t, "Mar 14", report.Activity.Daily[6].Label)
	assert.Equal(t, 3, report.Activity.Daily[6].Count)
}

func TestComputeTopUsers(t *testing.T) {
	profiles := []chat.Profile{{ID: "u2", Email: "two@example.com"}}
	var messages []chat.Message
	for i := 0; i < 12; i++ {
		for j := 0; j <= i%3; j++ {
			messages = append(messages, msg(fmt.Sprintf("user-%02d", i), at(time.Duration(j)*time.Minute)))
		}
	}
	messages = append(messages, msg("u2", at(0)), msg("u2", at(0)), msg("u2", at(0)), msg("u2", at(0)))

	report := Compute(fixedNow, profiles, nil, messages)
	top := report.Activity.TopUsers
	require.Len(t, top, 10)
	assert.Equal(t, TopUser{UserID: "u2", Email: "two@example.com", MessageCount: 4}, top[0])
	assert.Equal(t, "user-02", top[1].UserID, "ties keep first-seen order")
	assert.Equal(t, "Unknown", top[1].Email)
	assert.Equal(t, 3, top[1].MessageCount)
}

func TestComputeEmpty(t *testing.T) {
	report := Compute(fixedNow, nil, nil, nil)
	assert.Zero(t, report.Messages.AverageMessagesPerUser)
	assert.NotNil(t, report.Activity.TopUsers)
	assert.Len(t, report.Activity.Hourly, 24)
}

type fakeSource struct {
	profiles []chat.Profile
	err      error
}

func (f fakeSource) AllProfiles(context.Context) ([]chat.Profile, error) {
	return f.profiles, f.err
}

func (f fakeSource) AllConversations(context.Context) ([]chat.Conversation, error) {
	return nil, nil
}

func (f fakeSource) AllMessages(context.Context) ([]chat.Message, error) {
	return nil, nil
}

func TestServiceReport(t *testing.T) {
	svc := NewService(fakeSource{profiles: []chat.Profile{{ID: "u1", CreatedAt: at(time.Hour)}}}, func() time.Time { return fixedNow })
	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Users.NewUsersToday)
	assert.Equal(t, fixedNow, report.GeneratedAt)

	_, err = NewService(fakeSource{err: errors.New("boom")}, nil).Report(context.Background())
	assert.ErrorContains(t, err, "load profiles")
}
