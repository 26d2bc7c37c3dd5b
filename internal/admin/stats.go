package admin

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"auravox/internal/chat"
)

const (
	day         = 24 * time.Hour
	topUserSize = 10
)

type UserStats struct {
	TotalUsers           int `json:"total_users"`
	ActiveUsersToday     int `json:"active_users_today"`
	ActiveUsersThisWeek  int `json:"active_users_this_week"`
	ActiveUsersThisMonth int `json:"active_users_this_month"`
	NewUsersToday        int `json:"new_users_today"`
	NewUsersThisWeek     int `json:"new_users_this_week"`
	NewUsersThisMonth    int `json:"new_users_this_month"`
}

type MessageStats struct {
	TotalMessages                  int     `json:"total_messages"`
	MessagesToday                  int     `json:"messages_today"`
	MessagesThisWeek               int     `json:"messages_this_week"`
	MessagesThisMonth              int     `json:"messages_this_month"`
	AverageMessagesPerUser         float64 `json:"average_messages_per_user"`
	AverageMessagesPerConversation float64 `json:"average_messages_per_conversation"`
}

type ConversationStats struct {
	TotalConversations        int     `json:"total_conversations"`
	ConversationsToday        int     `json:"conversations_today"`
	ConversationsThisWeek     int     `json:"conversations_this_week"`
	ConversationsThisMonth    int     `json:"conversations_this_month"`
	AverageConversationLength float64 `json:"average_conversation_length"`
}

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type TopUser struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	MessageCount int    `json:"message_count"`
}

type Activity struct {
	Hourly   []Bucket  `json:"hourly"`
	Daily    []Bucket  `json:"daily"`
	TopUsers []TopUser `json:"top_users"`
}

// Report is the admin dashboard snapshot.
type Report struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Users         UserStats         `json:"user_stats"`
	Messages      MessageStats      `json:"message_stats"`
	Conversations ConversationStats `json:"conversation_stats"`
	Activity      Activity          `json:"activity"`
}

// Compute derives the report from full row sets. Windows start at local
// midnight of now: today, seven days before it and thirty days before it.
func Compute(now time.Time, profiles []chat.Profile, conversations []chat.Conversation, messages []chat.Message) Report {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := today.Add(-7 * day)
	monthAgo := today.Add(-30 * day)

	report := Report{GeneratedAt: now}

	report.Users.TotalUsers = len(profiles)
	for _, p := range profiles {
		report.Users.NewUsersToday += since(p.CreatedAt, today)
		report.Users.NewUsersThisWeek += since(p.CreatedAt, weekAgo)
		report.Users.NewUsersThisMonth += since(p.CreatedAt, monthAgo)
	}

	report.Conversations.TotalConversations = len(conversations)
	for _, c := range conversations {
		report.Conversations.ConversationsToday += since(c.CreatedAt, today)
		report.Conversations.ConversationsThisWeek += since(c.CreatedAt, weekAgo)
		report.Conversations.ConversationsThisMonth += since(c.CreatedAt, monthAgo)
	}

	activeToday := map[string]struct{}{}
	activeWeek := map[string]struct{}{}
	activeMonth := map[string]struct{}{}
	report.Messages.TotalMessages = len(messages)
	for _, m := range messages {
		if !m.CreatedAt.Before(today) {
			report.Messages.MessagesToday++
			activeToday[m.UserID] = struct{}{}
		}
		if !m.CreatedAt.Before(weekAgo) {
			report.Messages.MessagesThisWeek++
			activeWeek[m.UserID] = struct{}{}
		}
		if !m.CreatedAt.Before(monthAgo) {
			report.Messages.MessagesThisMonth++
			activeMonth[m.UserID] = struct{}{}
		}
	}
	report.Users.ActiveUsersToday = len(activeToday)
	report.Users.ActiveUsersThisWeek = len(activeWeek)
	report.Users.ActiveUsersThisMonth = len(activeMonth)

	report.Messages.AverageMessagesPerUser = ratio(len(messages), len(profiles))
	report.Messages.AverageMessagesPerConversation = ratio(len(messages), len(conversations))
	report.Conversations.AverageConversationLength = report.Messages.AverageMessagesPerConversation

	report.Activity = Activity{
		Hourly:   hourly(today, messages),
		Daily:    daily(today, messages),
		TopUsers: topUsers(profiles, messages),
	}
	return report
}

func since(t time.Time, start time.Time) int {
	if t.Before(start) {
		return 0
	}
	return 1
}

func ratio(n int, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func countBetween(messages []chat.Message, start time.Time, end time.Time) int {
	count := 0
	for _, m := range messages {
		if !m.CreatedAt.Before(start) && m.CreatedAt.Before(end) {
			count++
		}
	}
	return count
}

func hourly(today time.Time, messages []chat.Message) []Bucket {
	buckets := make([]Bucket, 24)
	for i := range buckets {
		start := today.Add(time.Duration(i) * time.Hour)
		buckets[i] = Bucket{
			Label: fmt.Sprintf("%02d:00", i),
			Count: countBetween(messages, start, start.Add(time.Hour)),
		}
	}
	return buckets
}

// daily returns the last seven days, oldest first.
func daily(today time.Time, messages []chat.Message) []Bucket {
	buckets := make([]Bucket, 7)
	for i := 0; i < 7; i++ {
		date := today.Add(-time.Duration(i) * day)
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		buckets[6-i] = Bucket{
			Label: date.Format("Jan 2"),
			Count: countBetween(messages, start, start.Add(day)),
		}
	}
	return buckets
}

// topUsers ranks message authors by count. Ties keep first-seen order.
func topUsers(profiles []chat.Profile, messages []chat.Message) []TopUser {
	emails := make(map[string]string, len(profiles))
	for _, p := range profiles {
		emails[p.ID] = p.Email
	}

	index := map[string]int{}
	var ranked []TopUser
	for _, m := range messages {
		i, ok := index[m.UserID]
		if !ok {
			i = len(ranked)
			index[m.UserID] = i
			ranked = append(ranked, TopUser{UserID: m.UserID})
		}
		ranked[i].MessageCount++
	}

	slices.SortStableFunc(ranked, func(a, b TopUser) int {
		return cmp.Compare(b.MessageCount, a.MessageCount)
	})
	if len(ranked) > topUserSize {
		ranked = ranked[:topUserSize]
	}
	for i := range ranked {
		ranked[i].Email = emails[ranked[i].UserID]
		if ranked[i].Email == "" {
			ranked[i].Email = "Unknown"
		}
	}
	if ranked == nil {
		ranked = []TopUser{}
	}
	return ranked
}

// Source supplies the rows a report is computed from.
type Source interface {
	AllProfiles(ctx context.Context) ([]chat.Profile, error)
	AllConversations(ctx context.Context) ([]chat.Conversation, error)
	AllMessages(ctx context.Context) ([]chat.Message, error)
}

type Service struct {
	source Source
	now    func() time.Time
}

func NewService(source Source, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{source: source, now: now}
}

func (s *Service) Report(ctx context.Context) (Report, error) {
	profiles, err := s.source.AllProfiles(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load profiles: %w", err)
	}
	conversations, err := s.source.AllConversations(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load conversations: %w", err)
	}
	messages, err := s.source.AllMessages(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load messages: %w", err)
	}
	return Compute(s.now(), profiles, conversations, messages), nil
}
