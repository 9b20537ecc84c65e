// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatLog
// model. Chat logs are append-only; there are no update or delete helpers.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// CreateChatLog inserts one question/answer turn. UserID may be nil for
// public widget chats. The row ID is a randomly generated UUID and
// CreatedAt is set to UTC.
func CreateChatLog(ctx context.Context, db *gorm.DB, companyID string, userID *string, conversationID, question, answer string) (*domain.ChatLog, error) {
	l := &domain.ChatLog{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ListRecentTurns returns up to limit most recent turns of a conversation in
// chronological order (oldest first), ready to replay as chat history.
func ListRecentTurns(ctx context.Context, db *gorm.DB, companyID, conversationID string, limit int) ([]domain.ChatLog, error) {
	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("company_id = ? AND conversation_id = ?", companyID, conversationID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountChatLogs returns the total number of chat logs for a company.
func CountChatLogs(ctx context.Context, db *gorm.DB, companyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Where("company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListChatLogsPage returns a paginated slice of a company's chat logs,
// ordered by creation time descending. Use CountChatLogs for pagination
// metadata. The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListChatLogsPage(ctx context.Context, db *gorm.DB, companyID string, offset, limit int) ([]domain.ChatLog, error) {
	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
