package message_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/db/testdb"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/service/conversation"
	"github.com/oggyb/talenthub/internal/service/message"
)

type fixture struct {
	env   *testdb.Env
	convs *conversation.Service
	msgs  *message.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	env := testdb.NewEnv(t)
	return fixture{
		env:   env,
		convs: conversation.NewConversationService(env.App),
		msgs:  message.NewMessageService(env.App),
	}
}

func (f fixture) conversation(t *testing.T, ids ...string) *db.Conversation {
	t.Helper()
	conv, _, err := f.convs.FindOrCreate(context.Background(), ids)
	require.NoError(t, err)
	return conv
}

func TestSend_TwoPartyReceiverAndOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	m1, err := f.msgs.Send(ctx, conv.ID, "u1", "  hello  ")
	require.NoError(t, err)
	require.NotNil(t, m1.ReceiverID)
	assert.Equal(t, "u2", *m1.ReceiverID)
	assert.Equal(t, "hello", m1.Content)

	m2, err := f.msgs.Send(ctx, conv.ID, "u2", "hi back")
	require.NoError(t, err)
	assert.Equal(t, "u1", *m2.ReceiverID)

	history, err := f.msgs.Messages(ctx, conv.ID, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, m1.ID, history[0].ID)
	assert.Equal(t, m2.ID, history[1].ID)
}

func TestSend_BumpsConversationActivity(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	older := f.conversation(t, "u1", "u2")
	newer := f.conversation(t, "u1", "u3")

	_, err := f.msgs.Send(ctx, older.ID, "u2", "ping")
	require.NoError(t, err)

	list, err := f.convs.FindAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "ping", list[0].LastMessage.Content)
	assert.Nil(t, list[1].LastMessage)
}

func TestSend_GroupHasNoReceiver(t *testing.T) {
	f := setup(t)
	conv := f.conversation(t, "u1", "u2", "u3")

	msg, err := f.msgs.Send(context.Background(), conv.ID, "u3", "all hands")
	require.NoError(t, err)
	assert.Nil(t, msg.ReceiverID)
}

func TestSend_Rejections(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	tests := []struct {
		name    string
		convID  string
		sender  string
		content string
		kind    svcErr.Kind
	}{
		{"undefined conversation", "undefined", "u1", "x", svcErr.KindValidation},
		{"blank sender", conv.ID, " ", "x", svcErr.KindValidation},
		{"blank content", conv.ID, "u1", "   ", svcErr.KindValidation},
		{"undefined content", conv.ID, "u1", "undefined", svcErr.KindValidation},
		{"too long", conv.ID, "u1", strings.Repeat("a", message.MaxContentLength+1), svcErr.KindValidation},
		{"unknown conversation", "nope", "u1", "x", svcErr.KindNotFound},
		{"non participant", conv.ID, "u3", "x", svcErr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.msgs.Send(ctx, tt.convID, tt.sender, tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.kind, svcErr.As(err).Kind)
		})
	}

	history, err := f.msgs.Messages(ctx, conv.ID, "")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSend_MaxLengthCountsCharacters(t *testing.T) {
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	_, err := f.msgs.Send(context.Background(), conv.ID, "u1", strings.Repeat("é", message.MaxContentLength))
	assert.NoError(t, err)
}

func TestSend_BlockedSenderForbidden(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	require.NoError(t, f.env.App.DB.Create(&db.BlockedUser{BlockerID: "u2", BlockedUserID: "u1"}).Error)

	_, err := f.msgs.Send(ctx, conv.ID, "u1", "hello?")
	assert.True(t, svcErr.IsKind(err, svcErr.KindForbidden))

	// the blocker can still write into the existing thread
	_, err = f.msgs.Send(ctx, conv.ID, "u2", "bye")
	assert.NoError(t, err)
}

func TestSend_ObjectionableContentPolicy(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	msg, err := f.msgs.Send(ctx, conv.ID, "u1", "what the hell")
	require.NoError(t, err)
	assert.Equal(t, "what the hell", msg.Content)

	f.env.App.Config.Moderation.RejectObjectionable = true
	_, err = f.msgs.Send(ctx, conv.ID, "u1", "what the hell")
	require.Error(t, err)
	assert.Equal(t, "content_rejected", svcErr.As(err).Code)

	// review-worthy text is never rejected
	_, err = f.msgs.Send(ctx, conv.ID, "u1", "click here for the brief")
	assert.NoError(t, err)
}

func TestMessages_ViewerMustParticipate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	_, err := f.msgs.Messages(ctx, conv.ID, "u3")
	assert.True(t, svcErr.IsKind(err, svcErr.KindForbidden))

	_, err = f.msgs.Messages(ctx, "missing", "u1")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestSend_ConcurrentSendersKeepTotalOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := "u1"
			if i%2 == 0 {
				sender = "u2"
			}
			_, err := f.msgs.Send(ctx, conv.ID, sender, "msg")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.msgs.Messages(ctx, conv.ID, "u1")
	require.NoError(t, err)
	require.Len(t, history, 20)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		assert.False(t, cur.CreatedAt.Before(prev.CreatedAt))
		assert.Greater(t, cur.ID, prev.ID)
	}
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conv := f.conversation(t, "u1", "u2")

	for _, body := range []string{"a", "b", "c"} {
		_, err := f.msgs.Send(ctx, conv.ID, "u1", body)
		require.NoError(t, err)
	}

	page, next, err := f.msgs.Page(ctx, conv.ID, "u2", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)

	rest, next, err := f.msgs.Page(ctx, conv.ID, "u2", next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Content)
	assert.Nil(t, next)

	bad := "%%%"
	_, _, err = f.msgs.Page(ctx, conv.ID, "u2", &bad, 2)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}

func TestSendDirectAndBetween(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.msgs.SendDirect(ctx, "u1", "u2", "direct one")
	require.NoError(t, err)
	_, err = f.msgs.SendDirect(ctx, "u2", "u1", "direct two")
	require.NoError(t, err)

	_, err = f.msgs.SendDirect(ctx, "u1", "u1", "me")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
	_, err = f.msgs.SendDirect(ctx, "u1", "ghost", "hi")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	require.NoError(t, f.env.App.DB.Create(&db.BlockedUser{BlockerID: "u3", BlockedUserID: "u1"}).Error)
	_, err = f.msgs.SendDirect(ctx, "u1", "u3", "hi")
	assert.True(t, svcErr.IsKind(err, svcErr.KindForbidden))

	between, err := f.msgs.Between(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "direct one", between[0].Content)
	assert.Nil(t, between[0].ConversationID)

	_, err = f.msgs.Between(ctx, "u1", "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}
