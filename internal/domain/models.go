// Package domain defines the persistence models for tenants, chat logs,
// leads, and billing entities. These types are mapped with GORM and form
// the core data layer of the assistant backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is an admin account that owns at most one company. Authentication is
// deliberately thin: email + bcrypt hash + a role label.
type User struct {
	ID           string         `json:"id"    gorm:"type:char(36);primaryKey"`
	Name         string         `json:"name"  gorm:"type:varchar(255);not null"`
	Email        string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string         `json:"-"     gorm:"type:varchar(255);not null"`
	Role         string         `json:"role"  gorm:"type:varchar(32);not null;default:'admin'"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"     gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Company is the tenant entity. The slug is unique and treated as immutable
// once issued because it is baked into embed scripts and public chat URLs.
//
// ModelRef holds the serialized fine-tune state for this company as a single
// string column (see modelref.go for the encoding). The fine-tune lifecycle
// manager is the only writer of this field.
type Company struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:char(36);not null;index"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null"`
	Slug        string         `json:"slug"        gorm:"type:varchar(255);not null;uniqueIndex"`
	Industry    string         `json:"industry"    gorm:"type:varchar(255)"`
	Email       string         `json:"email"       gorm:"type:varchar(255)"`
	Phone       string         `json:"phone"       gorm:"type:varchar(64)"`
	Address     string         `json:"address"     gorm:"type:varchar(255)"`
	Description string         `json:"description" gorm:"type:text"`
	Tone        string         `json:"tone"        gorm:"type:varchar(64);not null;default:'professional'"`
	ModelRef    string         `json:"model_reference" gorm:"column:model_reference;type:varchar(255);not null;default:'';index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Company.
func (Company) TableName() string { return "companies" }

// ChatLog records one question/answer turn. UserID is nil for public widget
// chats. Rows are append-only: the core never mutates or deletes them. The
// most recent rows for a conversation double as the short-term memory the
// conversational engine replays on the public path.
type ChatLog struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	CompanyID      string    `json:"company_id"      gorm:"type:char(36);not null;index:idx_company_logs,priority:1"`
	UserID         *string   `json:"user_id"         gorm:"type:char(36);index"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index"`
	Question       string    `json:"question"        gorm:"type:text;not null"`
	Answer         string    `json:"answer"          gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_company_logs,priority:2"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatLog.
func (ChatLog) TableName() string { return "chat_logs" }

// Lead is created opportunistically when a public chat message contains a
// contact signal (phone-like digit run, email, or time of day). Description
// stores the raw visitor message. Append-only.
type Lead struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	CompanyID   string    `json:"company_id"  gorm:"type:char(36);not null;index"`
	Description string    `json:"description" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// Plan mirrors a billing plan created at the payment provider. Price is kept
// as the decimal string sent to the provider to avoid float drift; Features
// is a JSON-encoded string array.
type Plan struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Name           string         `json:"name"             gorm:"type:varchar(255);not null"`
	ProviderPlanID string         `json:"provider_plan_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Price          string         `json:"price"            gorm:"type:varchar(32);not null"`
	Currency       string         `json:"currency"         gorm:"type:char(3);not null"`
	Features       string         `json:"features"         gorm:"type:text"`
	IsActive       bool           `json:"is_active"        gorm:"not null;default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Plan.
func (Plan) TableName() string { return "plans" }

// Subscription mirrors a provider subscription. Status is always a direct
// copy of the provider's last known value, refreshed only on explicit
// complete/cancel calls (reconciliation-on-read, not a state machine).
type Subscription struct {
	ID                     string         `json:"id"                       gorm:"type:char(36);primaryKey"`
	UserID                 string         `json:"user_id"                  gorm:"type:char(36);not null;index"`
	PlanID                 string         `json:"plan_id"                  gorm:"type:char(36);not null;index"`
	ProviderSubscriptionID string         `json:"provider_subscription_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Status                 string         `json:"status"                   gorm:"type:varchar(32);not null"`
	StartedAt              *time.Time     `json:"started_at"`
	NextBillingTime        *time.Time     `json:"next_billing_time"`
	CancelledAt            *time.Time     `json:"cancelled_at"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `json:"-"                        gorm:"index"`

	Plan Plan `json:"plan" gorm:"foreignKey:PlanID;references:ID"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }
