// Package finetune implements the training-data synthesizer, the dataset
// store, and the fine-tune lifecycle manager that owns the company model
// reference.
package finetune

import "errors"

var (
	// ErrNoDescription indicates the company has no description to train on.
	ErrNoDescription = errors.New("finetune: company has no description")

	// ErrInsufficientExamples indicates the synthesizer produced fewer valid
	// JSONL lines than the configured minimum; no dataset is kept.
	ErrInsufficientExamples = errors.New("finetune: not enough valid training examples")

	// ErrCompanyNotFound indicates the target company row is missing.
	ErrCompanyNotFound = errors.New("finetune: company not found")
)
