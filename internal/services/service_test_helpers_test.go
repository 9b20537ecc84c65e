package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedServiceCompany(t *testing.T, db *gorm.DB, userID, slug string) *domain.Company {
	t.Helper()
	c := &domain.Company{
		UserID:      userID,
		Name:        "Acme",
		Slug:        slug,
		Description: "We sell rockets.",
		Tone:        "friendly",
	}
	if err := repo.CreateCompany(context.Background(), db, c); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	return c
}

// fakeAI records the last chat completion request.
type fakeAI struct {
	gotModel    string
	gotMessages []ai.ChatMessage
	gotTemp     float32
	reply       string
	err         error
	calls       int
}

func (f *fakeAI) ChatCompletion(_ context.Context, model string, messages []ai.ChatMessage, temperature float32) (string, error) {
	f.calls++
	f.gotModel = model
	f.gotMessages = messages
	f.gotTemp = temperature
	return f.reply, f.err
}

// fakeTrigger records lifecycle notifications.
type fakeTrigger struct {
	triggered []string
	resets    []string
}

func (f *fakeTrigger) TriggerCompany(id string) { f.triggered = append(f.triggered, id) }
func (f *fakeTrigger) ResetAttempts(id string)  { f.resets = append(f.resets, id) }
