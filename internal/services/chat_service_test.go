package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

func TestPublicChat_UsesDefaultModelAndSystemPrompt(t *testing.T) {
	db := newServiceDB(t)
	seedServiceCompany(t, db, "u1", "acme")
	fa := &fakeAI{reply: "Hello!"}
	s := NewChatService(db, fa, "gpt-3.5-turbo", zerolog.Nop())

	got, err := s.PublicChat(context.Background(), "acme", "", "hi there")
	if err != nil {
		t.Fatalf("PublicChat: %v", err)
	}
	if got.Reply != "Hello!" || got.ConversationID == "" {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if fa.gotModel != "gpt-3.5-turbo" {
		t.Fatalf("model = %q, want default", fa.gotModel)
	}
	if fa.gotTemp != chatTemperature {
		t.Fatalf("temperature = %v, want %v", fa.gotTemp, chatTemperature)
	}
	sys := fa.gotMessages[0]
	if sys.Role != ai.RoleSystem || !strings.Contains(sys.Content, "Acme") || !strings.Contains(sys.Content, "friendly") {
		t.Fatalf("unexpected system prompt: %+v", sys)
	}
}

func TestPublicChat_UsesFineTunedModelWhenReady(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	if err := repo.UpdateModelReference(context.Background(), db, c.ID, domain.ReadyRef("ft:acme:1")); err != nil {
		t.Fatalf("UpdateModelReference: %v", err)
	}
	fa := &fakeAI{reply: "Hi"}
	s := NewChatService(db, fa, "gpt-3.5-turbo", zerolog.Nop())

	if _, err := s.PublicChat(context.Background(), "acme", "", "hi"); err != nil {
		t.Fatalf("PublicChat: %v", err)
	}
	if fa.gotModel != "ft:acme:1" {
		t.Fatalf("model = %q, want fine-tuned", fa.gotModel)
	}
}

func TestPublicChat_PendingFallsBackToDefault(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	_ = repo.UpdateModelReference(context.Background(), db, c.ID, domain.PendingRef("ftjob-1"))
	fa := &fakeAI{reply: "Hi"}
	s := NewChatService(db, fa, "gpt-3.5-turbo", zerolog.Nop())

	if _, err := s.PublicChat(context.Background(), "acme", "", "hi"); err != nil {
		t.Fatalf("PublicChat: %v", err)
	}
	if fa.gotModel != "gpt-3.5-turbo" {
		t.Fatalf("model = %q, want default while pending", fa.gotModel)
	}
}

func TestPublicChat_ReplaysLastFivePairsOldestFirst(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		l, err := repo.CreateChatLog(ctx, db, c.ID, nil, "conv-1",
			fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		if err != nil {
			t.Fatalf("CreateChatLog: %v", err)
		}
		if err := db.Model(l).Update("created_at",
			time.Now().UTC().Add(time.Duration(i-10)*time.Second)).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
	fa := &fakeAI{reply: "ok"}
	s := NewChatService(db, fa, "m", zerolog.Nop())

	if _, err := s.PublicChat(ctx, "acme", "conv-1", "new question"); err != nil {
		t.Fatalf("PublicChat: %v", err)
	}

	// system + 5 pairs + new user message = 12
	if len(fa.gotMessages) != 12 {
		t.Fatalf("message count = %d, want 12", len(fa.gotMessages))
	}
	if fa.gotMessages[1].Content != "q2" || fa.gotMessages[2].Content != "a2" {
		t.Fatalf("history should start at the oldest of the window, got %q/%q",
			fa.gotMessages[1].Content, fa.gotMessages[2].Content)
	}
	if last := fa.gotMessages[11]; last.Role != ai.RoleUser || last.Content != "new question" {
		t.Fatalf("last message should be the new question, got %+v", last)
	}
}

func TestPublicChat_EmptyProviderReply_Fallback(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	s := NewChatService(db, &fakeAI{err: ai.ErrEmptyReply}, "m", zerolog.Nop())

	got, err := s.PublicChat(context.Background(), "acme", "", "hello")
	if err != nil {
		t.Fatalf("PublicChat: %v", err)
	}
	if got.Reply != FallbackReply {
		t.Fatalf("reply = %q, want fallback", got.Reply)
	}
	// The fallback turn is still logged.
	total, _ := repo.CountChatLogs(context.Background(), db, c.ID)
	if total != 1 {
		t.Fatalf("chat log count = %d, want 1", total)
	}
}

func TestPublicChat_ProviderFailure_GenericErrorNothingPersisted(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	s := NewChatService(db, &fakeAI{err: errors.New("rate limited: key sk-123")}, "m", zerolog.Nop())

	_, err := s.PublicChat(context.Background(), "acme", "", "call me at 1234567890")
	if !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "AI response failed") || strings.Contains(err.Error(), "sk-123") {
		t.Fatalf("provider detail leaked: %v", err)
	}
	if total, _ := repo.CountChatLogs(context.Background(), db, c.ID); total != 0 {
		t.Fatal("no chat log should persist on failure")
	}
	if total, _ := repo.CountLeads(context.Background(), db, c.ID); total != 0 {
		t.Fatal("no lead should persist on failure")
	}
}

func TestPublicChat_CapturesLeadFromRawMessage(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	s := NewChatService(db, &fakeAI{reply: "ok"}, "m", zerolog.Nop())

	msg := "please call 1234567890"
	got, err := s.PublicChat(context.Background(), "acme", "", msg)
	if err != nil {
		t.Fatalf("PublicChat: %v", err)
	}
	if !got.LeadCaptured {
		t.Fatal("lead should be captured")
	}
	leads, _ := repo.ListLeadsPage(context.Background(), db, c.ID, 0, 10)
	if len(leads) != 1 || leads[0].Description != msg {
		t.Fatalf("lead should store the raw message, got %+v", leads)
	}
}

func TestPublicChat_UnknownSlug(t *testing.T) {
	db := newServiceDB(t)
	s := NewChatService(db, &fakeAI{reply: "ok"}, "m", zerolog.Nop())
	if _, err := s.PublicChat(context.Background(), "ghost", "", "hi"); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestPublicChat_ValidatesMessage(t *testing.T) {
	db := newServiceDB(t)
	seedServiceCompany(t, db, "u1", "acme")
	s := NewChatService(db, &fakeAI{reply: "ok"}, "m", zerolog.Nop())

	if _, err := s.PublicChat(context.Background(), "acme", "", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := s.PublicChat(context.Background(), "acme", "", strings.Repeat("x", maxMessageRunes+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
}

func TestAuthChat_ProviderErrorCarriesStatusDetail(t *testing.T) {
	db := newServiceDB(t)
	seedServiceCompany(t, db, "u1", "acme")
	fa := &fakeAI{err: &openai.APIError{
		HTTPStatusCode: 500,
		Message:        "The server had an error while processing your request",
	}}
	s := NewChatService(db, fa, "m", zerolog.Nop())

	_, err := s.AuthChat(context.Background(), "u1", "test my bot")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(pe.Detail, "provider status 500") ||
		!strings.Contains(pe.Detail, "server had an error") {
		t.Fatalf("detail = %q, want upstream status and message", pe.Detail)
	}
}

func TestAuthChat_SurfacesProviderDetailAndSkipsHistory(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	ctx := context.Background()
	if _, err := repo.CreateChatLog(ctx, db, c.ID, nil, "conv-1", "old q", "old a"); err != nil {
		t.Fatalf("CreateChatLog: %v", err)
	}

	fa := &fakeAI{err: errors.New("model overloaded")}
	s := NewChatService(db, fa, "m", zerolog.Nop())

	_, err := s.AuthChat(ctx, "u1", "test my bot")
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("admin path should surface provider detail, got %v", err)
	}
	// Nothing persisted on failure; only the pre-seeded row remains.
	if total, _ := repo.CountChatLogs(ctx, db, c.ID); total != 1 {
		t.Fatal("failed auth chat must not persist a log")
	}

	fa.err = nil
	fa.reply = "works"
	got, err := s.AuthChat(ctx, "u1", "test my bot")
	if err != nil || got.Reply != "works" {
		t.Fatalf("AuthChat: %+v, %v", got, err)
	}
	// No history replay: system + user only.
	if len(fa.gotMessages) != 2 {
		t.Fatalf("auth path replayed history: %d messages", len(fa.gotMessages))
	}

	var lastLog domain.ChatLog
	if err := db.Order("created_at desc").First(&lastLog).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if lastLog.UserID == nil || *lastLog.UserID != "u1" {
		t.Fatalf("auth chat log should carry the user id, got %+v", lastLog.UserID)
	}
}

func TestListLogs_Pagination(t *testing.T) {
	db := newServiceDB(t)
	c := seedServiceCompany(t, db, "u1", "acme")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := repo.CreateChatLog(ctx, db, c.ID, nil, "conv", "q", "a"); err != nil {
			t.Fatalf("CreateChatLog: %v", err)
		}
	}
	s := NewChatService(db, &fakeAI{}, "m", zerolog.Nop())

	items, total, err := s.ListLogs(ctx, "u1", 1, 3)
	if err != nil || total != 5 || len(items) != 3 {
		t.Fatalf("ListLogs = %d items, total %d, %v", len(items), total, err)
	}
	// Defaults applied for bad paging values.
	items, total, err = s.ListLogs(ctx, "u1", 0, 0)
	if err != nil || total != 5 || len(items) != 5 {
		t.Fatalf("ListLogs defaults = %d items, total %d, %v", len(items), total, err)
	}
}
