package resumes

// Stage names one step of the ingestion pipeline.
type Stage string

const (
	StageStarting     Stage = "starting"
	StageUploadResume Stage = "upload_resume"
	StageConvert      Stage = "convert"
	StageUploadImage  Stage = "upload_image"
	StagePrepare      Stage = "prepare"
	StageAnalyze      Stage = "analyze"
	StageParse        Stage = "parse"
	StageValidate     Stage = "validate"
	StageSave         Stage = "save"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// StatusText is the user-facing progress line for a stage.
func (s Stage) StatusText() string {
	switch s {
	case StageStarting:
		return "Starting analysis..."
	case StageUploadResume:
		return "Uploading resume..."
	case StageConvert:
		return "Converting PDF to image..."
	case StageUploadImage:
		return "Uploading image..."
	case StagePrepare:
		return "Preparing data..."
	case StageAnalyze, StageParse, StageValidate, StageSave:
		return "Analyzing resume..."
	case StageComplete:
		return "Analysis complete. Redirecting..."
	default:
		return "Something went wrong. Please try again."
	}
}

// Progress observes stage transitions. It must not block.
type Progress func(Stage)
