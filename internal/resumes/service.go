package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/extract"
	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/render"
	"resulenz-backend/internal/shared/config"
	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/storage/object"
	"resulenz-backend/internal/shared/telemetry"
	"resulenz-backend/internal/shared/tracing"
)

// Service runs the ingestion and presentation pipelines.
type Service struct {
	Blobs     object.ObjectStore
	Repo      *Repo
	Converter render.Converter
	LLM       llm.Client
	Refs      RefRegistry

	MaxUploadBytes int64
	NewID          func() string
	Now            func() time.Time
}

// IngestInput is one submitted résumé with its job context.
type IngestInput struct {
	Owner          string
	FileName       string
	Document       []byte
	CompanyName    string
	JobTitle       string
	JobDescription string
	Progress       Progress
}

// IngestResult is the analyzed record and where to show it.
type IngestResult struct {
	Record Record
	Route  string
}

// Ingest uploads the PDF and its preview, stores the pending record, asks
// the AI for feedback, and stores the record again with it. Steps run in
// order; a failing step stops the pipeline and nothing is retried.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	started := s.now()
	metrics.IncIngestionStarted()
	ctx, span := tracing.Start(ctx, "resumes.ingest", attribute.Int("input.document_bytes", len(in.Document)))

	report := func(stage Stage) {
		if in.Progress != nil {
			in.Progress(stage)
		}
	}
	recordID := ""
	fail := func(stage Stage, err error) (IngestResult, error) {
		serr := &StageError{Stage: stage, RecordID: recordID, Err: err}
		metrics.IncIngestionFailed(string(stage))
		telemetry.Error("ingestion.failed", map[string]any{
			"owner":     shortOwner(in.Owner),
			"resume_id": recordID,
			"stage":     string(stage),
			"error":     err,
		})
		report(StageFailed)
		tracing.End(span, serr)
		return IngestResult{}, serr
	}

	report(StageStarting)
	if err := s.validate(in); err != nil {
		return fail(StageStarting, err)
	}

	report(StageUploadResume)
	resumePath, err := s.upload(ctx, StageUploadResume, in.Owner, in.FileName, in.Document)
	if err != nil {
		return fail(StageUploadResume, err)
	}

	report(StageConvert)
	img, err := s.convert(ctx, in.Document, in.FileName)
	if err != nil {
		return fail(StageConvert, err)
	}

	report(StageUploadImage)
	imagePath, err := s.upload(ctx, StageUploadImage, in.Owner, img.FileName, img.Data)
	if err != nil {
		return fail(StageUploadImage, err)
	}

	report(StagePrepare)
	recordID = s.newID()
	span.SetAttributes(attribute.String("resume.id", recordID))
	rec := Record{
		ID:             recordID,
		ResumePath:     resumePath,
		ImagePath:      imagePath,
		CompanyName:    in.CompanyName,
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
		CreatedAt:      started.UTC(),
	}
	if err := s.Repo.Put(ctx, in.Owner, rec); err != nil {
		// Nothing was written, so the record does not exist.
		recordID = ""
		return fail(StagePrepare, err)
	}

	report(StageAnalyze)
	text, err := s.analyze(ctx, resumePath, in)
	if err != nil {
		return fail(StageAnalyze, err)
	}

	report(StageParse)
	payload, err := ExtractJSONPayload(text)
	if err != nil {
		return fail(StageParse, err)
	}

	report(StageValidate)
	fb, err := ParseFeedback(payload)
	if err != nil {
		stage := StageValidate
		if errors.Is(err, ErrInvalidAIOutput) {
			stage = StageParse
		}
		return fail(stage, err)
	}

	report(StageSave)
	rec.Feedback = &fb
	if err := s.Repo.Put(ctx, in.Owner, rec); err != nil {
		return fail(StageSave, err)
	}

	elapsed := s.now().Sub(started)
	metrics.IncIngestionCompleted()
	metrics.ObserveIngestionDuration(elapsed)
	telemetry.Info("ingestion.completed", map[string]any{
		"owner":       shortOwner(in.Owner),
		"resume_id":   rec.ID,
		"score":       fb.Score,
		"duration_ms": elapsed.Milliseconds(),
	})
	report(StageComplete)
	tracing.End(span, nil)
	return IngestResult{Record: rec, Route: Route(rec.ID)}, nil
}

func (s *Service) validate(in IngestInput) error {
	if strings.TrimSpace(in.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if len(in.Document) == 0 {
		return fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if limit := s.maxUploadBytes(); int64(len(in.Document)) > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(in.Document), limit)
	}
	if !extract.IsPDF(in.Document) {
		return fmt.Errorf("%w: file must be a PDF", ErrInvalidInput)
	}
	return nil
}

func (s *Service) upload(ctx context.Context, stage Stage, owner, fileName string, data []byte) (string, error) {
	ctx, span := tracing.Start(ctx, "resumes."+string(stage))
	key, _, _, err := s.Blobs.Save(ctx, owner, fileName, bytes.NewReader(data))
	if err == nil && key == "" {
		err = errors.New("store returned no path")
	}
	tracing.End(span, err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return key, nil
}

func (s *Service) convert(ctx context.Context, doc []byte, fileName string) (render.Image, error) {
	ctx, span := tracing.Start(ctx, "resumes.convert")
	img, err := s.Converter.FirstPage(ctx, doc, fileName)
	if err == nil && len(img.Data) == 0 {
		err = render.ErrNoOutput
	}
	tracing.End(span, err)
	if err != nil {
		return render.Image{}, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if limit := s.maxUploadBytes(); int64(len(img.Data)) > limit {
		return render.Image{}, fmt.Errorf("%w: preview is %d bytes (limit %d)", ErrConversionFailed, len(img.Data), limit)
	}
	if img.FileName == "" {
		img.FileName = render.ImageName(fileName)
	}
	return img, nil
}

func (s *Service) analyze(ctx context.Context, resumePath string, in IngestInput) (string, error) {
	ctx, span := tracing.Start(ctx, "resumes.analyze")
	resp, err := s.LLM.Feedback(ctx, llm.FeedbackRequest{
		FilePath:    resumePath,
		Document:    in.Document,
		FileName:    in.FileName,
		MimeType:    extract.MimePDF,
		Instruction: llm.BuildInstruction(in.JobTitle, in.JobDescription),
	})
	if err == nil {
		span.SetAttributes(attribute.String("ai.provider", resp.Provider), attribute.String("ai.model", resp.Model))
	}
	tracing.End(span, err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAIFailed, err)
	}
	text, ok := resp.FirstText()
	if !ok || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: response has no text content", ErrAIFailed)
	}
	return text, nil
}

// Open loads a record for display and registers transient references to
// its two blobs. Failures are logged and leave that part of the view
// empty; a missing record yields an empty view.
func (s *Service) Open(ctx context.Context, owner, id string) *View {
	ctx, span := tracing.Start(ctx, "resumes.open", attribute.String("resume.id", id))
	defer span.End()

	view := &View{ID: uuid.NewString(), OpenedAt: s.now(), refs: s.Refs}
	complete := false
	defer func() {
		if !complete {
			view.Close()
		}
	}()

	rec, found, err := s.Repo.Get(ctx, owner, id)
	switch {
	case err != nil:
		telemetry.Error("presentation.load_failed", map[string]any{"resume_id": id, "error": err})
		metrics.IncPresentationLoad("error")
		complete = true
		return view
	case !found:
		metrics.IncPresentationLoad("missing")
		complete = true
		return view
	}
	view.Found = true
	view.Record = rec

	view.Resume = s.reference(ctx, owner, rec.ID, rec.ResumePath, extract.MimePDF)
	view.Image = s.reference(ctx, owner, rec.ID, rec.ImagePath, render.ContentTypePNG)

	result := "ok"
	if view.Resume == nil || view.Image == nil {
		result = "partial"
	}
	metrics.IncPresentationLoad(result)
	complete = true
	return view
}

func (s *Service) reference(ctx context.Context, owner, id, path, contentType string) *blobref.Ref {
	fields := map[string]any{"resume_id": id, "path": path}
	if path == "" || !object.OwnedBy(owner, path) {
		fields["error"] = "blob path missing or not owned by caller"
		telemetry.Warn("presentation.blob_skipped", fields)
		return nil
	}
	rc, err := s.Blobs.Open(ctx, path)
	if err != nil {
		fields["error"] = err
		telemetry.Error("presentation.blob_read_failed", fields)
		return nil
	}
	defer rc.Close()
	limit := s.maxUploadBytes()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		fields["error"] = err
		telemetry.Error("presentation.blob_read_failed", fields)
		return nil
	}
	if int64(len(data)) > limit {
		fields["limit_bytes"] = limit
		telemetry.Warn("presentation.blob_too_large", fields)
		return nil
	}
	ref, err := s.Refs.Create(data, contentType)
	if err != nil {
		fields["error"] = err
		telemetry.Error("presentation.blob_ref_failed", fields)
		return nil
	}
	return &ref
}

// List returns the owner's records, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]Record, error) {
	return s.Repo.List(ctx, owner)
}

// Get returns one record without creating references.
func (s *Service) Get(ctx context.Context, owner, id string) (Record, error) {
	rec, found, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return config.DefaultMaxUploadBytes
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func shortOwner(owner string) string {
	ns := Namespace(owner)
	return ns[:12]
}
