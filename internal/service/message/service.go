package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/contentfilter"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
	"github.com/oggyb/talenthub/internal/utils/pagination"
)

const (
	// MaxContentLength is counted in characters, not bytes.
	MaxContentLength = 5000

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service stores and reads messages inside conversations, plus the legacy
// direct path that predates conversations.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	convs  *repository.ConversationRepository
	msgs   *repository.MessageRepository
	blocks *repository.BlockRepository
	filter *contentfilter.Filter
}

func NewMessageService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		convs:  repository.NewConversationRepository(appCtx.DB),
		msgs:   repository.NewMessageRepository(appCtx.DB),
		blocks: repository.NewBlockRepository(appCtx.DB),
		filter: contentfilter.New(),
	}
}

// Send appends a message to a conversation.
//
// Behavior (checks short-circuit in this order):
//   - ids and trimmed content must be present and not "undefined".
//   - Conversation must exist, sender must be a participant.
//   - No other participant may have blocked the sender.
//   - Content policy: objectionable text is rejected only when
//     FILTER_REJECT_OBJECTIONABLE is on; otherwise it is logged.
//
// Two-party threads get ReceiverID set to the other participant; larger
// threads store no receiver and fan out by membership.
func (s *Service) Send(ctx context.Context, conversationID, senderID, content string) (*db.Message, error) {
	fields := map[string][]string{}
	conversationID = requireID(fields, "conversationId", conversationID)
	senderID = requireID(fields, "senderId", senderID)
	content = checkContent(fields, content)
	if len(fields) > 0 {
		return nil, svcErr.Fields(fields)
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, svcErr.Forbidden("Sender is not a participant of this conversation")
	}

	others := make([]string, 0, len(conv.Participants)-1)
	for _, id := range conv.ParticipantIDs() {
		if id != senderID {
			others = append(others, id)
		}
	}

	blocked, err := s.blocks.BlockedByAny(ctx, others, senderID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if blocked {
		return nil, svcErr.Forbidden("You cannot send messages to a user who has blocked you")
	}

	if err := s.screen(content, senderID); err != nil {
		return nil, err
	}

	msg := &db.Message{ConversationID: &conv.ID, SenderID: senderID, Content: content}
	if len(others) == 1 {
		msg.ReceiverID = &others[0]
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		s.appCtx.Logger.Error("message insert failed", "conversation_id", conv.ID, "err", err)
		return nil, svcErr.Map(err)
	}

	metrics.MessagesSent.Inc()
	s.appCtx.Logger.Debug("message sent", "conversation_id", conv.ID, "message_id", msg.ID, "sender", senderID)
	return msg, nil
}

// Messages returns the whole history, oldest first. A non-empty viewerID
// must belong to the conversation.
func (s *Service) Messages(ctx context.Context, conversationID, viewerID string) ([]db.Message, error) {
	conv, err := s.readable(ctx, conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgs.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, nil
}

// Page returns up to limit messages after token, oldest first, and the
// token for the next page when more remain.
func (s *Service) Page(ctx context.Context, conversationID, viewerID string, token *string, limit int) ([]db.Message, *string, error) {
	conv, err := s.readable(ctx, conversationID, viewerID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := pagination.Decode(deref(token)); err != nil {
		return nil, nil, svcErr.FieldValidation("cursor", "invalid pagination token")
	}

	limit = pagination.ClampLimit(limit, defaultPageSize, maxPageSize)
	msgs, next, err := s.msgs.PageByConversation(ctx, conv.ID, token, limit)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, next, nil
}

// SendDirect writes a message addressed to receiverID with no conversation
// row. Self-messages, unknown users and blocked senders are refused.
func (s *Service) SendDirect(ctx context.Context, senderID, receiverID, content string) (*db.Message, error) {
	fields := map[string][]string{}
	senderID = requireID(fields, "senderId", senderID)
	receiverID = requireID(fields, "receiverId", receiverID)
	content = checkContent(fields, content)
	if len(fields) > 0 {
		return nil, svcErr.Fields(fields)
	}
	if senderID == receiverID {
		return nil, svcErr.Validation("You cannot send a message to yourself")
	}

	missing, err := s.users.Missing(ctx, []string{senderID, receiverID})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if len(missing) > 0 {
		return nil, svcErr.NotFound(fmt.Sprintf("User %s not found", missing[0]))
	}

	blocked, err := s.blocks.Exists(ctx, receiverID, senderID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if blocked {
		return nil, svcErr.Forbidden("You cannot send messages to a user who has blocked you")
	}

	if err := s.screen(content, senderID); err != nil {
		return nil, err
	}

	msg := &db.Message{SenderID: senderID, ReceiverID: &receiverID, Content: content}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, svcErr.Map(err)
	}
	metrics.MessagesSent.Inc()
	return msg, nil
}

// Between returns every message exchanged by a and b, oldest first.
func (s *Service) Between(ctx context.Context, userA, userB string) ([]db.Message, error) {
	fields := map[string][]string{}
	userA = requireID(fields, "userA", userA)
	userB = requireID(fields, "userB", userB)
	if len(fields) > 0 {
		return nil, svcErr.Fields(fields)
	}

	msgs, err := s.msgs.Between(ctx, userA, userB)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, nil
}

func (s *Service) readable(ctx context.Context, conversationID, viewerID string) (*db.Conversation, error) {
	id, ok := service.CleanID(conversationID)
	if !ok {
		return nil, svcErr.FieldValidation("conversationId", "conversation id is required")
	}
	conv, err := s.convs.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if viewer, ok := service.CleanID(viewerID); ok && !conv.HasParticipant(viewer) {
		return nil, svcErr.Forbidden("You are not a participant of this conversation")
	}
	return conv, nil
}

// screen runs the content filter. Only an objectionable verdict with
// rejection enabled stops the write.
func (s *Service) screen(content, senderID string) error {
	verdict := s.filter.Classify(content)
	metrics.FilterVerdicts.WithLabelValues(string(verdict), "message").Inc()

	switch verdict {
	case contentfilter.Objectionable:
		if s.appCtx.Config != nil && s.appCtx.Config.Moderation.RejectObjectionable {
			return svcErr.FieldValidation("content", "message contains objectionable content").WithCode("content_rejected")
		}
		s.appCtx.Logger.Warn("objectionable message accepted", "sender", senderID)
	case contentfilter.NeedsReview:
		s.appCtx.Logger.Info("message flagged for review", "sender", senderID)
	}
	return nil
}

func requireID(fields map[string][]string, name, raw string) string {
	id, ok := service.CleanID(raw)
	if !ok {
		fields[name] = append(fields[name], name+" is required")
	}
	return id
}

func checkContent(fields map[string][]string, raw string) string {
	content := strings.TrimSpace(raw)
	switch {
	case content == "" || content == "undefined":
		fields["content"] = append(fields["content"], "content is required")
	case utf8.RuneCountInString(content) > MaxContentLength:
		fields["content"] = append(fields["content"], fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	}
	return content
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
