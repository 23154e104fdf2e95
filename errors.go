// CLAUDE:SUMMARY Error taxonomy of an extraction run: ErrorKind, per-record ErrorRecord, fatal RunError.
package sintesis

import "fmt"

// ErrorKind classifies run errors.
type ErrorKind string

const (
	// Fatal.
	KindSourceUnreadable  ErrorKind = "SourceUnreadable"
	KindPersistenceFailed ErrorKind = "PersistenceFailed"
	KindRunInProgress     ErrorKind = "RunInProgress"

	// Recovered.
	KindToolInvocationFailed     ErrorKind = "ToolInvocationFailed"
	KindSectionNotDetected       ErrorKind = "SectionNotDetected"
	KindArticleBoundaryAmbiguous ErrorKind = "ArticleBoundaryAmbiguous"
	KindImageAssociationFailed   ErrorKind = "ImageAssociationFailed"
	KindManifestInvalid          ErrorKind = "ManifestInvalid"
)

// ErrorRecord is one recovered problem, with enough context for an operator.
type ErrorRecord struct {
	Kind      ErrorKind `json:"kind"`
	Stage     State     `json:"stage"`
	SectionID string    `json:"section_id,omitempty"`
	Page      int       `json:"page,omitempty"`
	Message   string    `json:"message"`
}

// RunError is returned for fatal failures. The partial ExtractionResult is
// returned alongside it.
type RunError struct {
	Kind  ErrorKind
	Stage State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("sintesis: %s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
