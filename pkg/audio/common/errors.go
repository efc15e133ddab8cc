package common

import "errors"

// Stage identifies the pipeline stage an error originated from
type Stage string

const (
	StageDecode   Stage = "decode"
	StageAnalyze  Stage = "analyze"
	StageFeatures Stage = "features"
	StageScale    Stage = "scale"
	StageClassify Stage = "classify"
	StageArtifact Stage = "artifact"
)

// Common error codes
const (
	ErrCodeDecode         = "DECODE_FAILED"
	ErrCodeDegenerate     = "DEGENERATE_INPUT"
	ErrCodeSchemaMismatch = "SCHEMA_MISMATCH"
	ErrCodeFeatureOrder   = "FEATURE_ORDER"
	ErrCodeArtifactLoad   = "ARTIFACT_LOAD"
)

// PipelineError represents feature-pipeline errors. Decode and degenerate
// input errors are client errors (bad upload); schema, ordering and artifact
// errors indicate a broken deployment and must fail loudly.
type PipelineError struct {
	Stage   Stage  `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError creates a new pipeline error
func NewPipelineError(stage Stage, code, message string, cause error) *PipelineError {
	return &PipelineError{
		Stage:   stage,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsClientError reports whether the error maps to bad caller input rather
// than a deployment fault.
func IsClientError(err error) bool {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == ErrCodeDecode || pe.Code == ErrCodeDegenerate
}

// ErrorCode extracts the pipeline error code, or "" for foreign errors
func ErrorCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
