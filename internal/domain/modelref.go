package domain

import "strings"

// ModelState enumerates the fine-tune lifecycle states of a company.
type ModelState int

const (
	// ModelUnset means no fine-tune has been attempted since the last reset.
	ModelUnset ModelState = iota
	// ModelPending means a training job was submitted and has not finished.
	ModelPending
	// ModelReady means a fine-tuned model is available for inference.
	ModelReady
	// ModelFailed means the last attempt failed and may be retried.
	ModelFailed
)

// String returns a short label for logging.
func (s ModelState) String() string {
	switch s {
	case ModelPending:
		return "pending"
	case ModelReady:
		return "ready"
	case ModelFailed:
		return "failed"
	default:
		return "unset"
	}
}

const (
	pendingPrefix = "pending:"
	failedMarker  = "failed"
)

// ModelReference is the decoded form of Company.ModelRef. Exactly one of
// JobID (Pending) or ModelID (Ready) is meaningful, depending on State.
type ModelReference struct {
	State   ModelState
	JobID   string
	ModelID string
}

// PendingRef returns a reference for a submitted training job.
func PendingRef(jobID string) ModelReference {
	return ModelReference{State: ModelPending, JobID: jobID}
}

// ReadyRef returns a reference for a usable fine-tuned model.
func ReadyRef(modelID string) ModelReference {
	return ModelReference{State: ModelReady, ModelID: modelID}
}

// FailedRef returns the failed-attempt reference.
func FailedRef() ModelReference {
	return ModelReference{State: ModelFailed}
}

// UnsetRef returns the zero reference.
func UnsetRef() ModelReference {
	return ModelReference{State: ModelUnset}
}

// Encode serializes the reference into the single-column string form:
// "" for Unset, "pending:<jobID>" for Pending, "failed" for Failed, and the
// bare model identifier for Ready. Parse inverts it.
func (r ModelReference) Encode() string {
	switch r.State {
	case ModelPending:
		return pendingPrefix + r.JobID
	case ModelReady:
		return r.ModelID
	case ModelFailed:
		return failedMarker
	default:
		return ""
	}
}

// ParseModelReference decodes a stored model_reference column value.
// Unknown non-empty values are treated as Ready model identifiers, which
// keeps rows written before the pending/failed markers existed usable.
func ParseModelReference(raw string) ModelReference {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return UnsetRef()
	case raw == failedMarker:
		return FailedRef()
	case strings.HasPrefix(raw, pendingPrefix):
		return PendingRef(strings.TrimPrefix(raw, pendingPrefix))
	default:
		return ReadyRef(raw)
	}
}
