package finetune

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/domain"
)

const (
	synthSystemPrompt = "You are a data generator for fine-tuning GPT models."
	synthTemperature  = 0.7
)

// Completer is the slice of the AI gateway the synthesizer needs.
type Completer interface {
	ChatCompletion(ctx context.Context, model string, messages []ai.ChatMessage, temperature float32) (string, error)
}

// Synthesizer turns a company profile into a JSONL fine-tune dataset by
// asking a general model to generate example conversations, then filtering
// the output line by line.
type Synthesizer struct {
	ai          Completer
	model       string // the general model used for generation
	minExamples int
	log         zerolog.Logger
}

// NewSynthesizer builds a synthesizer. minExamples < 1 defaults to 20.
func NewSynthesizer(completer Completer, model string, minExamples int, log zerolog.Logger) *Synthesizer {
	if minExamples < 1 {
		minExamples = 20
	}
	return &Synthesizer{ai: completer, model: model, minExamples: minExamples, log: log}
}

// Synthesize generates and validates a dataset for the company. It returns
// the JSONL bytes, or ErrInsufficientExamples when fewer than the minimum
// number of lines survive validation. Invalid lines are dropped one by one;
// a single bad line never fails the attempt on its own.
func (s *Synthesizer) Synthesize(ctx context.Context, c *domain.Company) ([]byte, error) {
	if strings.TrimSpace(c.Description) == "" {
		return nil, ErrNoDescription
	}

	raw, err := s.ai.ChatCompletion(ctx, s.model, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: synthSystemPrompt},
		{Role: ai.RoleUser, Content: buildGenerationPrompt(c, s.minExamples)},
	}, synthTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate examples: %w", err)
	}

	valid, dropped := filterJSONL(raw)
	if dropped > 0 {
		s.log.Warn().
			Str("company_id", c.ID).
			Int("dropped", dropped).
			Int("kept", len(valid)).
			Msg("dropped invalid training lines")
	}
	if len(valid) < s.minExamples {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientExamples, len(valid), s.minExamples)
	}
	return []byte(strings.Join(valid, "\n") + "\n"), nil
}

// buildGenerationPrompt embeds the company profile into the instruction for
// the data-generator model.
func buildGenerationPrompt(c *domain.Company, minExamples int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate at least %d training examples in JSONL format for fine-tuning a customer support assistant for the company below.\n\n", minExamples)
	fmt.Fprintf(&b, "Company name: %s\n", c.Name)
	if c.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", c.Industry)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "Contact email: %s\n", c.Email)
	}
	if c.Phone != "" {
		fmt.Fprintf(&b, "Contact phone: %s\n", c.Phone)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", c.Address)
	}
	fmt.Fprintf(&b, "Tone: %s\n", c.Tone)
	fmt.Fprintf(&b, "Description: %s\n\n", c.Description)
	b.WriteString("Each line must be a single JSON object of the form ")
	b.WriteString(`{"messages":[{"role":"system","content":"..."},{"role":"user","content":"..."},{"role":"assistant","content":"..."}]}`)
	b.WriteString(".\nOutput one JSON object per line. Do not wrap the output in an array. Do not add commentary, headers, or code fences.")
	return b.String()
}

// trainingLine mirrors the chat fine-tune example shape.
type trainingLine struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// filterJSONL splits raw model output into lines and keeps only those that
// parse as valid training examples. Returns kept lines and the drop count.
func filterJSONL(raw string) (valid []string, dropped int) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if isValidTrainingLine(line) {
			valid = append(valid, line)
		} else {
			dropped++
		}
	}
	return valid, dropped
}

// isValidTrainingLine checks one JSONL line: a messages array of at least
// three entries, opening with a system message and containing a non-empty
// assistant reply.
func isValidTrainingLine(line string) bool {
	var tl trainingLine
	if err := json.Unmarshal([]byte(line), &tl); err != nil {
		return false
	}
	if len(tl.Messages) < 3 {
		return false
	}
	if tl.Messages[0].Role != "system" {
		return false
	}
	hasAssistant := false
	for _, m := range tl.Messages {
		if m.Role == "" || strings.TrimSpace(m.Content) == "" {
			return false
		}
		if m.Role == "assistant" {
			hasAssistant = true
		}
	}
	return hasAssistant
}
