// Package ai wraps the model provider API behind a small gateway used for
// both fine-tune training calls and chat inference. It normalizes provider
// job statuses and bounds every call with a timeout; retries are left to
// the callers, which own the lifecycle semantics.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyReply is returned by ChatCompletion when the provider responds
// without any usable assistant text. Callers decide whether that is fatal
// or substitutes a fallback reply.
var ErrEmptyReply = errors.New("ai: empty reply from provider")

// JobStatus is the normalized state of a fine-tune training job.
type JobStatus string

const (
	// JobQueued means the job is accepted but not yet running.
	JobQueued JobStatus = "queued"
	// JobRunning means the job is training. Unknown provider statuses are
	// reported as JobRunning so new provider states never break polling.
	JobRunning JobStatus = "running"
	// JobSucceeded means training finished and a model id is available.
	JobSucceeded JobStatus = "succeeded"
	// JobFailed means the provider gave up on the job.
	JobFailed JobStatus = "failed"
)

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// Roles understood by the provider.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Config carries provider credentials and per-call budgets.
type Config struct {
	APIKey           string
	OrgID            string
	BaseURL          string // optional override, used by tests and proxies
	TrainingTimeout  time.Duration
	InferenceTimeout time.Duration
}

// Gateway is the provider-facing port used by the fine-tune lifecycle and
// the conversational engine. It exists so tests can substitute fakes.
type Gateway interface {
	UploadDataset(ctx context.Context, name string, jsonl []byte) (fileID string, err error)
	StartTrainingJob(ctx context.Context, fileID, baseModel string) (jobID string, err error)
	GetJobStatus(ctx context.Context, jobID string) (status JobStatus, modelID string, err error)
	ChatCompletion(ctx context.Context, model string, messages []ChatMessage, temperature float32) (string, error)
}

// Client implements Gateway on the OpenAI API.
type Client struct {
	api              *openai.Client
	trainingTimeout  time.Duration
	inferenceTimeout time.Duration
}

// NewClient builds a gateway from config. Zero timeouts get safe defaults.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.OrgID != "" {
		oc.OrgID = cfg.OrgID
	}
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	trainTO := cfg.TrainingTimeout
	if trainTO <= 0 {
		trainTO = 120 * time.Second
	}
	inferTO := cfg.InferenceTimeout
	if inferTO <= 0 {
		inferTO = 60 * time.Second
	}
	return &Client{
		api:              openai.NewClientWithConfig(oc),
		trainingTimeout:  trainTO,
		inferenceTimeout: inferTO,
	}
}

// UploadDataset uploads JSONL training bytes with the fine-tune purpose and
// returns the provider file id.
func (c *Client) UploadDataset(ctx context.Context, name string, jsonl []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.trainingTimeout)
	defer cancel()

	f, err := c.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   jsonl,
		Purpose: openai.PurposeFineTune,
	})
	if err != nil {
		return "", fmt.Errorf("upload dataset: %w", err)
	}
	return f.ID, nil
}

// StartTrainingJob submits a fine-tune job for an uploaded file and returns
// the provider job id.
func (c *Client) StartTrainingJob(ctx context.Context, fileID, baseModel string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.trainingTimeout)
	defer cancel()

	job, err := c.api.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile: fileID,
		Model:        baseModel,
	})
	if err != nil {
		return "", fmt.Errorf("start training job: %w", err)
	}
	return job.ID, nil
}

// GetJobStatus polls a fine-tune job. On success the normalized status is
// returned together with the fine-tuned model id (only set for succeeded
// jobs).
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (JobStatus, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.trainingTimeout)
	defer cancel()

	job, err := c.api.RetrieveFineTuningJob(ctx, jobID)
	if err != nil {
		return "", "", fmt.Errorf("retrieve training job: %w", err)
	}
	return normalizeStatus(job.Status), job.FineTunedModel, nil
}

// normalizeStatus maps provider strings onto the JobStatus enum. Anything
// unrecognized counts as still running.
func normalizeStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "validating_files":
		return JobQueued
	case "running":
		return JobRunning
	case "succeeded":
		return JobSucceeded
	case "failed", "cancelled":
		return JobFailed
	default:
		return JobRunning
	}
}

// ChatCompletion sends one chat completion request and returns the first
// choice's text. A response without text yields ErrEmptyReply.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []ChatMessage, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.inferenceTimeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
