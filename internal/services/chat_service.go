// Package services – ChatService
//
// The conversational engine. It resolves which model answers for a company
// (fine-tuned when ready, otherwise the default), replays recent history on
// the public widget path, appends chat logs, and opportunistically captures
// leads from visitor messages.
//
// Error exposure differs by path on purpose: the authenticated path
// surfaces provider detail to the company admin, while the public path
// collapses all provider failures into ErrAIUnavailable.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

const (
	// FallbackReply is returned verbatim when the provider yields no text.
	FallbackReply = "No reply received."

	chatTemperature = 0.3
	historyPairs    = 5
	maxMessageRunes = 4000
)

// Completer is the slice of the AI gateway the conversational engine needs.
type Completer interface {
	ChatCompletion(ctx context.Context, model string, messages []ai.ChatMessage, temperature float32) (string, error)
}

// ChatReply is the result of one conversational turn.
type ChatReply struct {
	Reply          string
	ConversationID string
	LeadCaptured   bool
}

// ChatService runs conversations against the company's resolved model.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// AI performs chat completions.
	AI Completer
	// DefaultModel answers when no fine-tuned model is ready.
	DefaultModel string
	// Log receives structured warnings for degraded paths.
	Log zerolog.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, completer Completer, defaultModel string, log zerolog.Logger) *ChatService {
	return &ChatService{DB: db, AI: completer, DefaultModel: defaultModel, Log: log}
}

// resolveModel picks the fine-tuned model when the lifecycle marked it
// ready, otherwise the default. Pending and failed states fall back too.
func (s *ChatService) resolveModel(c *domain.Company) string {
	if ref := domain.ParseModelReference(c.ModelRef); ref.State == domain.ModelReady {
		return ref.ModelID
	}
	return s.DefaultModel
}

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return "", ErrMessageTooLong
	}
	return message, nil
}

// systemPrompt frames the assistant with the company identity, tone, and
// the lead-generation directive.
func systemPrompt(c *domain.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the AI assistant of %s. Answer in a %s tone.", c.Name, c.Tone)
	if c.Description != "" {
		fmt.Fprintf(&b, " Company background: %s", c.Description)
	}
	b.WriteString(" If the visitor shares contact details or wants a follow-up, acknowledge it and ask for any missing contact information.")
	return b.String()
}

// PublicChat handles one widget turn for the company behind slug. It
// replays up to five recent question/answer pairs of the conversation,
// persists the new turn, and records a lead when the raw visitor message
// carries a contact signal. Provider failures surface as ErrAIUnavailable
// and persist nothing.
func (s *ChatService) PublicChat(ctx context.Context, slug, conversationID, message string) (*ChatReply, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}
	company, err := repo.GetCompanyBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	if strings.TrimSpace(conversationID) == "" {
		conversationID = uuid.NewString()
	}

	msgs := []ai.ChatMessage{{Role: ai.RoleSystem, Content: systemPrompt(company)}}
	history, err := repo.ListRecentTurns(ctx, s.DB, company.ID, conversationID, historyPairs)
	if err != nil {
		return nil, err
	}
	for _, turn := range history {
		msgs = append(msgs,
			ai.ChatMessage{Role: ai.RoleUser, Content: turn.Question},
			ai.ChatMessage{Role: ai.RoleAssistant, Content: turn.Answer},
		)
	}
	msgs = append(msgs, ai.ChatMessage{Role: ai.RoleUser, Content: message})

	reply, err := s.AI.ChatCompletion(ctx, s.resolveModel(company), msgs, chatTemperature)
	switch {
	case errors.Is(err, ai.ErrEmptyReply):
		reply = FallbackReply
	case err != nil:
		s.Log.Warn().Err(err).Str("company_id", company.ID).Msg("public chat completion failed")
		return nil, ErrAIUnavailable
	}

	if _, err := repo.CreateChatLog(ctx, s.DB, company.ID, nil, conversationID, message, reply); err != nil {
		return nil, err
	}

	// Lead capture is best-effort; a failed insert never breaks the chat.
	captured := false
	if HasLeadSignal(message) {
		if _, err := repo.CreateLead(ctx, s.DB, company.ID, message); err != nil {
			s.Log.Warn().Err(err).Str("company_id", company.ID).Msg("lead capture failed")
		} else {
			captured = true
		}
	}

	return &ChatReply{Reply: reply, ConversationID: conversationID, LeadCaptured: captured}, nil
}

// AuthChat handles a turn from the company admin testing their assistant.
// No history is replayed and provider errors are surfaced with detail. The
// turn is logged with the admin's user id; nothing is persisted on failure.
func (s *ChatService) AuthChat(ctx context.Context, userID, message string) (*ChatReply, error) {
	message, err := validateMessage(message)
	if err != nil {
		return nil, err
	}
	company, err := repo.GetCompanyByUserID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	msgs := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: systemPrompt(company)},
		{Role: ai.RoleUser, Content: message},
	}
	reply, err := s.AI.ChatCompletion(ctx, s.resolveModel(company), msgs, chatTemperature)
	switch {
	case errors.Is(err, ai.ErrEmptyReply):
		reply = FallbackReply
	case err != nil:
		return nil, &ProviderError{Detail: providerDetail(err), Err: err}
	}

	conversationID := uuid.NewString()
	if _, err := repo.CreateChatLog(ctx, s.DB, company.ID, &userID, conversationID, message, reply); err != nil {
		return nil, err
	}
	return &ChatReply{Reply: reply, ConversationID: conversationID}, nil
}

// providerDetail renders a provider failure for the company admin. API
// errors keep their upstream status and message; anything else passes
// through verbatim.
func providerDetail(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("provider status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err.Error()
}

// ListLogs returns a page of the caller's company chat logs plus the total.
func (s *ChatService) ListLogs(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	company, err := repo.GetCompanyByUserID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrCompanyNotFound
		}
		return nil, 0, err
	}
	total, err := repo.CountChatLogs(ctx, s.DB, company.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatLog{}, 0, nil
	}
	items, err := repo.ListChatLogsPage(ctx, s.DB, company.ID, (page-1)*pageSize, pageSize)
	return items, total, err
}
