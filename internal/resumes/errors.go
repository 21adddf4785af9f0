package resumes

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTooLarge         = errors.New("file exceeds the upload limit")
	ErrUploadFailed     = errors.New("upload failed")
	ErrConversionFailed = errors.New("PDF conversion failed")
	ErrAIFailed         = errors.New("AI analysis failed")
	ErrInvalidAIOutput  = errors.New("AI returned invalid JSON format")
	ErrSchemaMismatch   = errors.New("AI feedback does not match the expected schema")
	ErrNotFound         = errors.New("not found")
)

// StageError records which ingestion stage failed and for which record.
// RecordID is empty when the failure happened before the first write.
type StageError struct {
	Stage    Stage
	RecordID string
	Err      error
}

func (e *StageError) Error() string {
	return "ingest " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage extracts the failing stage from err, if any.
func FailedStage(err error) (Stage, string, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, se.RecordID, true
	}
	return "", "", false
}
