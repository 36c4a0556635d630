package messages

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/maneesh/chatrecords/internal/apperr"
	"github.com/maneesh/chatrecords/internal/events"
	"github.com/maneesh/chatrecords/internal/models"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func ptr[T any](v T) *T { return &v }

// newTestService returns a service whose clock advances one millisecond per call
func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	pub := &recordingPublisher{}
	svc := NewService(storage.NewMemoryMessageRepository(), storage.NopCache{}, pub, logger)

	var mu sync.Mutex
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return svc, pub
}

func create(t *testing.T, svc *Service, req models.CreateMessageRequest) *models.Message {
	t.Helper()
	msg, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return msg
}

func TestCreateGetDeleteScenario(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})
	assert.NoError(t, models.ValidateID(msg.ID))
	assert.Equal(t, msg.CreatedAt, msg.UpdatedAt)
	assert.Equal(t, models.MessageTypeText, msg.MessageType)
	assert.Equal(t, events.MessageCreated, pub.last().Type)

	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)
	assert.False(t, got.IsPinned)
	assert.Empty(t, got.Reactions)
	assert.NotNil(t, got.Reactions)

	require.NoError(t, svc.Delete(ctx, msg.ID))
	assert.Equal(t, events.MessageDeleted, pub.last().Type)

	_, err = svc.Get(ctx, msg.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Message not found", apperr.Message(err))

	page, err := svc.List(ctx, ListParams{ChannelID: ptr("c1")})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.Cursor)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  models.CreateMessageRequest
	}{
		{name: "missing channel", req: models.CreateMessageRequest{UserID: "u1", Content: ptr("x")}},
		{name: "missing user", req: models.CreateMessageRequest{ChannelID: "c1", Content: ptr("x")}},
		{name: "missing content", req: models.CreateMessageRequest{ChannelID: "c1", UserID: "u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		})
	}
}

func TestMalformedIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Get(ctx, "xyz")
	assert.Equal(t, "Invalid ID", apperr.Message(err))

	for _, err := range []error{
		svc.Update(ctx, "xyz", models.UpdateMessageRequest{}),
		svc.Delete(ctx, "xyz"),
		svc.AddReaction(ctx, "xyz", models.AddReactionRequest{UserID: "u", Emoji: "👍"}),
		svc.RemoveReaction(ctx, "xyz", "👍"),
		svc.Pin(ctx, "xyz"),
		svc.Unpin(ctx, "xyz"),
	} {
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
	}
}

func TestMutationsOnUnknownIDSucceed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	id := models.NewID()

	assert.NoError(t, svc.Update(ctx, id, models.UpdateMessageRequest{Content: ptr("x")}))
	assert.NoError(t, svc.Delete(ctx, id))
	assert.NoError(t, svc.Pin(ctx, id))
}

func TestUpdateStampsEditedAtWithoutContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})

	require.NoError(t, svc.Update(ctx, msg.ID, models.UpdateMessageRequest{}))
	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)
	require.NotNil(t, got.EditedAt)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, *got.EditedAt, got.UpdatedAt)

	require.NoError(t, svc.Update(ctx, msg.ID, models.UpdateMessageRequest{Content: ptr("edited")}))
	got, err = svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
}

func TestReactionScenario(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})

	require.NoError(t, svc.AddReaction(ctx, msg.ID, models.AddReactionRequest{UserID: "user_a", Emoji: "👍"}))
	require.NoError(t, svc.AddReaction(ctx, msg.ID, models.AddReactionRequest{UserID: "user_b", Emoji: "👍"}))
	require.NoError(t, svc.AddReaction(ctx, msg.ID, models.AddReactionRequest{UserID: "user_a", Emoji: "👍"}))
	require.NoError(t, svc.AddReaction(ctx, msg.ID, models.AddReactionRequest{UserID: "user_a", Emoji: "🎉"}))
	assert.Equal(t, "🎉", pub.last().Emoji)

	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 3)
	assert.Equal(t, models.NewReaction("user_a", "👍"), got.Reactions[0])
	assert.Equal(t, models.NewReaction("user_b", "👍"), got.Reactions[1])

	require.NoError(t, svc.RemoveReaction(ctx, msg.ID, "👍"))
	got, err = svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	for _, r := range got.Reactions {
		assert.NotEqual(t, "👍", r.Emoji)
	}
	assert.Len(t, got.Reactions, 1)
	assert.Equal(t, events.MessageReactionRemoved, pub.last().Type)
}

func TestAddReactionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	id := models.NewID()

	err := svc.AddReaction(context.Background(), id, models.AddReactionRequest{Emoji: "👍"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	err = svc.AddReaction(context.Background(), id, models.AddReactionRequest{UserID: "u1"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestPinUnpinIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})

	for _, step := range []struct {
		apply func(context.Context, string) error
		want  bool
	}{
		{svc.Pin, true},
		{svc.Pin, true},
		{svc.Unpin, false},
		{svc.Unpin, false},
	} {
		require.NoError(t, step.apply(ctx, msg.ID))
		got, err := svc.Get(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.IsPinned)
	}
}

func TestChannelAndThreadOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	root := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("root")})
	var replies []string
	for i := 0; i < 3; i++ {
		reply := create(t, svc, models.CreateMessageRequest{
			ChannelID:       "c1",
			UserID:          "u2",
			Content:         ptr("reply"),
			ThreadID:        &root.ID,
			ParentMessageID: &root.ID,
		})
		replies = append(replies, reply.ID)
	}
	later := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("later")})

	channel, err := svc.ChannelMessages(ctx, "c1", nil)
	require.NoError(t, err)
	require.Len(t, channel.Items, 2)
	assert.Equal(t, later.ID, channel.Items[0].ID)
	assert.Equal(t, root.ID, channel.Items[1].ID)
	for _, m := range channel.Items {
		assert.Nil(t, m.ThreadID)
	}
	require.NotNil(t, channel.Cursor)
	assert.Equal(t, root.ID, *channel.Cursor)
	assert.False(t, channel.HasMore)

	thread, err := svc.ThreadMessages(ctx, root.ID, nil)
	require.NoError(t, err)
	require.Len(t, thread.Items, 3)
	for i, m := range thread.Items {
		assert.Equal(t, replies[i], m.ID)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(thread.Items[i-1].CreatedAt))
		}
	}
	assert.Nil(t, thread.Cursor)

	all, err := svc.List(ctx, ListParams{ChannelID: ptr("c1")})
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for i := 0; i < 4; i++ {
		create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("m")})
	}
	create(t, svc, models.CreateMessageRequest{ChannelID: "c2", UserID: "u2", Content: ptr("m")})

	page, err := svc.List(ctx, ListParams{ChannelID: ptr("c1"), Limit: ptr(int64(2))})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.Cursor)
	assert.Equal(t, page.Items[1].ID, *page.Cursor)

	page, err = svc.List(ctx, ListParams{ChannelID: ptr("c1"), Limit: ptr(int64(10))})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.False(t, page.HasMore)

	page, err = svc.List(ctx, ListParams{UserID: ptr("u2")})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

type failingRepo struct {
	*storage.MemoryMessageRepository
}

func (failingRepo) Find(ctx context.Context, q storage.MessageQuery) ([]models.Message, error) {
	return nil, errors.New("server selection timeout")
}

func TestStorageFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := NewService(failingRepo{storage.NewMemoryMessageRepository()}, storage.NopCache{}, events.NopPublisher{}, logger)

	_, err := svc.ChannelMessages(context.Background(), "c1", nil)
	assert.True(t, apperr.Is(err, apperr.KindStorageFailure))
	assert.Equal(t, "server selection timeout", apperr.Message(err))
	assert.Len(t, hook.AllEntries(), 1)
}

func TestCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger, _ := logtest.NewNullLogger()
	svc := NewService(storage.NewMemoryMessageRepository(), storage.NewRedisCacheFromClient(client, time.Minute), events.NopPublisher{}, logger)

	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})
	_, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(storage.MessageCacheKey(msg.ID)))

	require.NoError(t, svc.Pin(ctx, msg.ID))
	assert.False(t, mr.Exists(storage.MessageCacheKey(msg.ID)))

	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPinned)
}

func TestMutationEventsCarryChannel(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	msg := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})

	mutations := []struct {
		eventType string
		run       func() error
	}{
		{events.MessageUpdated, func() error { return svc.Update(ctx, msg.ID, models.UpdateMessageRequest{Content: ptr("edited")}) }},
		{events.MessageReactionAdded, func() error {
			return svc.AddReaction(ctx, msg.ID, models.AddReactionRequest{UserID: "u2", Emoji: "👍"})
		}},
		{events.MessageReactionRemoved, func() error { return svc.RemoveReaction(ctx, msg.ID, "👍") }},
		{events.MessagePinned, func() error { return svc.Pin(ctx, msg.ID) }},
		{events.MessageUnpinned, func() error { return svc.Unpin(ctx, msg.ID) }},
		{events.MessageDeleted, func() error { return svc.Delete(ctx, msg.ID) }},
	}
	for _, m := range mutations {
		require.NoError(t, m.run(), m.eventType)
		e := pub.last()
		assert.Equal(t, m.eventType, e.Type)
		assert.Equal(t, msg.ID, e.ID, m.eventType)
		assert.Equal(t, "c1", e.ChannelID, m.eventType)
	}

	require.NoError(t, svc.Pin(ctx, msg.ID))
	assert.Empty(t, pub.last().ChannelID)
}

func TestCreateDedupesMentions(t *testing.T) {
	svc, _ := newTestService(t)

	msg := create(t, svc, models.CreateMessageRequest{
		ChannelID: "c1",
		UserID:    "u1",
		Content:   ptr("@u3 @u2 @u3"),
		Mentions:  []string{"u3", "u2", "u3", "u2"},
	})
	assert.Equal(t, []string{"u3", "u2"}, msg.Mentions)

	got, err := svc.Get(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u2"}, got.Mentions)

	empty := create(t, svc, models.CreateMessageRequest{ChannelID: "c1", UserID: "u1", Content: ptr("hi")})
	assert.NotNil(t, empty.Mentions)
	assert.Empty(t, empty.Mentions)
}
