package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/shared/pdftest"
)

func ingestInput(owner string) IngestInput {
	return IngestInput{
		Owner:          owner,
		FileName:       "jane.pdf",
		Document:       pdftest.Resume(),
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Go and Postgres",
	}
}

func TestIngestSuccessWritesRecordTwice(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Route != "/resume/"+res.Record.ID {
		t.Fatalf("unexpected route %q", res.Route)
	}

	writes := f.kv.writes()
	if len(writes) != 2 {
		t.Fatalf("expected 2 kv writes, got %d", len(writes))
	}
	if writes[0].Key != Key(res.Record.ID) || writes[1].Key != writes[0].Key {
		t.Fatalf("expected both writes to %s, got %s and %s", Key(res.Record.ID), writes[0].Key, writes[1].Key)
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(writes[0].Value), &first); err != nil {
		t.Fatalf("decode first write: %v", err)
	}
	if v, ok := first["feedback"]; !ok || v != nil {
		t.Fatalf("expected first write to carry feedback null, got %v", v)
	}

	stored, found, err := f.svc.Repo.Get(context.Background(), "user-1", res.Record.ID)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if stored.Feedback == nil || stored.Feedback.Score != 80 {
		t.Fatalf("expected stored score 80, got %+v", stored.Feedback)
	}
	if stored.ResumePath == "" || stored.ImagePath == "" {
		t.Fatalf("expected both blob paths, got %+v", stored)
	}
	if f.llm.last.FilePath != stored.ResumePath {
		t.Fatalf("expected AI call with resume path, got %q", f.llm.last.FilePath)
	}
}

func TestIngestIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if seen[res.Record.ID] {
			t.Fatalf("duplicate id %s", res.Record.ID)
		}
		seen[res.Record.ID] = true
	}
}

func TestIngestWithoutBraceKeepsFeedbackPending(t *testing.T) {
	f := newFixture(t)
	f.llm.resp = textResponse("I could not review this document.")

	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if !errors.Is(err, ErrInvalidAIOutput) {
		t.Fatalf("expected ErrInvalidAIOutput, got %v", err)
	}
	if !strings.Contains(err.Error(), "AI returned invalid JSON format") {
		t.Fatalf("expected invalid JSON format message, got %q", err.Error())
	}
	stage, id, ok := FailedStage(err)
	if !ok || stage != StageParse || id == "" {
		t.Fatalf("unexpected stage info %q %q %v", stage, id, ok)
	}

	if n := len(f.kv.writes()); n != 1 {
		t.Fatalf("expected only the initial kv write, got %d", n)
	}
	stored, found, _ := f.svc.Repo.Get(context.Background(), "user-1", id)
	if !found || stored.Feedback != nil {
		t.Fatalf("expected pending record, got found=%v feedback=%+v", found, stored.Feedback)
	}
}

func TestIngestExtractsJSONFromProse(t *testing.T) {
	f := newFixture(t)
	f.llm.resp = textResponse("Here is the result: " + validFeedbackJSON + " Thanks!")

	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Record.Feedback.Score != 80 {
		t.Fatalf("expected score 80, got %d", res.Record.Feedback.Score)
	}
}

func TestIngestUsesFirstTextPart(t *testing.T) {
	f := newFixture(t)
	f.llm.resp = llm.Response{Message: llm.Message{Content: llm.PartsContent(
		llm.Part{Type: "text", Text: validFeedbackJSON},
		llm.Part{Type: "text", Text: "ignored"},
	)}}
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Record.Feedback.Summary != "Solid backend résumé." {
		t.Fatalf("unexpected summary %q", res.Record.Feedback.Summary)
	}
}

func TestIngestRejectsSchemaMismatch(t *testing.T) {
	f := newFixture(t)
	f.llm.resp = textResponse(`{"score": "high", "summary": "ok"}`)

	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if stage, _, _ := FailedStage(err); stage != StageValidate {
		t.Fatalf("expected validate stage, got %q", stage)
	}
	if n := len(f.kv.writes()); n != 1 {
		t.Fatalf("expected only the initial kv write, got %d", n)
	}
}

func TestIngestAIFailures(t *testing.T) {
	tests := []struct {
		name string
		resp llm.Response
		err  error
	}{
		{name: "provider error", err: errBoom},
		{name: "empty content", resp: textResponse("   ")},
		{name: "no parts", resp: llm.Response{Message: llm.Message{Content: llm.PartsContent()}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.llm.resp, f.llm.err = tt.resp, tt.err
			_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
			if !errors.Is(err, ErrAIFailed) {
				t.Fatalf("expected ErrAIFailed, got %v", err)
			}
			if n := len(f.kv.writes()); n != 1 {
				t.Fatalf("expected 1 kv write, got %d", n)
			}
		})
	}
}

func TestIngestConversionFailureStopsBeforeLaterStages(t *testing.T) {
	f := newFixture(t)
	f.conv.err = errBoom

	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if stage, id, _ := FailedStage(err); stage != StageConvert || id != "" {
		t.Fatalf("unexpected stage %q id %q", stage, id)
	}
	if n := len(f.kv.writes()); n != 0 {
		t.Fatalf("expected no kv writes, got %d", n)
	}
	if f.llm.calls != 0 {
		t.Fatalf("expected no AI call, got %d", f.llm.calls)
	}
	items, err := f.blobs.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the PDF upload, got %d blobs", len(items))
	}
}

func TestIngestEmptyConversionOutputFails(t *testing.T) {
	f := newFixture(t)
	f.conv.img.Data = nil
	if _, err := f.svc.Ingest(context.Background(), ingestInput("user-1")); !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
}

func TestIngestInitialWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.kv.fail = errBoom
	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if stage, id, _ := FailedStage(err); stage != StagePrepare || id != "" {
		t.Fatalf("unexpected stage %q id %q (%v)", stage, id, err)
	}
	if f.llm.calls != 0 {
		t.Fatalf("expected no AI call")
	}
}

func TestIngestValidatesInput(t *testing.T) {
	f := newFixture(t)
	f.svc.MaxUploadBytes = 64

	in := ingestInput("user-1")
	if _, err := f.svc.Ingest(context.Background(), in); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	f.svc.MaxUploadBytes = 0
	in.Document = []byte("plain text")
	if _, err := f.svc.Ingest(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-PDF, got %v", err)
	}
	in = ingestInput("")
	if _, err := f.svc.Ingest(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing owner, got %v", err)
	}
	if f.conv.calls != 0 || len(f.kv.writes()) != 0 {
		t.Fatalf("validation failures must not reach later stages")
	}
}

func TestIngestReportsProgressInOrder(t *testing.T) {
	f := newFixture(t)
	var stages []Stage
	in := ingestInput("user-1")
	in.Progress = func(s Stage) { stages = append(stages, s) }
	if _, err := f.svc.Ingest(context.Background(), in); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	want := []Stage{StageStarting, StageUploadResume, StageConvert, StageUploadImage, StagePrepare, StageAnalyze, StageParse, StageValidate, StageSave, StageComplete}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("unexpected stages %v", stages)
	}

	f.llm.err = errBoom
	stages = nil
	_, _ = f.svc.Ingest(context.Background(), in)
	if stages[len(stages)-1] != StageFailed {
		t.Fatalf("expected final failed stage, got %v", stages)
	}
	if StageFailed.StatusText() != "Something went wrong. Please try again." {
		t.Fatalf("unexpected failure text %q", StageFailed.StatusText())
	}
}

func TestOpenMissingRecordYieldsEmptyView(t *testing.T) {
	f := newFixture(t)
	view := f.svc.Open(context.Background(), "user-1", "does-not-exist")
	defer view.Close()

	if view.Found || view.Resume != nil || view.Image != nil || view.Feedback() != nil || view.Status() != "" {
		t.Fatalf("expected empty view, got %+v", view)
	}
	if f.refs.created != 0 {
		t.Fatalf("expected no references, got %d", f.refs.created)
	}
}

func TestOpenCreatesReferencesAndReleasesOnce(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	view := f.svc.Open(context.Background(), "user-1", res.Record.ID)
	if !view.Found || view.Resume == nil || view.Image == nil {
		t.Fatalf("expected both references, got %+v", view)
	}
	if view.Resume.ContentType != "application/pdf" || view.Image.ContentType != "image/png" {
		t.Fatalf("unexpected content types %q %q", view.Resume.ContentType, view.Image.ContentType)
	}
	if view.Feedback() == nil || view.Feedback().Score != 80 || view.Status() != StatusReady {
		t.Fatalf("expected ready feedback, got %+v", view.Feedback())
	}
	if _, _, ok := f.refs.Resolve(view.Resume.Token); !ok {
		t.Fatalf("expected resume reference to resolve")
	}

	view.Close()
	view.Close()
	if f.refs.revokes[view.Resume.Token] != 1 || f.refs.revokes[view.Image.Token] != 1 {
		t.Fatalf("expected each reference released once, got %v", f.refs.revokes)
	}
	if _, _, ok := f.refs.Resolve(view.Image.Token); ok {
		t.Fatalf("expected image reference to be revoked")
	}
}

func TestCloseReleasesOnlySuccessfulReadOnce(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := f.blobs.Delete(context.Background(), res.Record.ImagePath); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	view := f.svc.Open(context.Background(), "user-1", res.Record.ID)
	if view.Resume == nil || view.Image != nil {
		t.Fatalf("expected only the resume reference, got resume=%v image=%v", view.Resume, view.Image)
	}
	if view.Feedback() == nil {
		t.Fatalf("feedback must still be exposed when a blob read fails")
	}
	view.Close()
	view.Close()
	if got := f.refs.totalRevokes(); got != 1 {
		t.Fatalf("expected exactly one release, got %d", got)
	}
}

func TestOpenIgnoresForeignBlobPaths(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := res.Record
	other, err := f.svc.Ingest(context.Background(), ingestInput("user-2"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec.ImagePath = other.Record.ImagePath
	if err := f.svc.Repo.Put(context.Background(), "user-1", rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	view := f.svc.Open(context.Background(), "user-1", rec.ID)
	defer view.Close()
	if view.Image != nil {
		t.Fatalf("expected foreign image path to be skipped")
	}
}

func TestOpenPendingRecord(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errBoom
	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	_, id, _ := FailedStage(err)

	view := f.svc.Open(context.Background(), "user-1", id)
	defer view.Close()
	if !view.Found || view.Status() != StatusPending || view.Feedback() != nil {
		t.Fatalf("expected pending view, got %+v", view)
	}
}

func TestListNewestFirstAndScopedToOwner(t *testing.T) {
	f := newFixture(t)
	base := f.svc.Now()
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		f.svc.Now = func() time.Time { return at }
		if _, err := f.svc.Ingest(context.Background(), ingestInput("user-1")); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	if _, err := f.svc.Ingest(context.Background(), ingestInput("user-2")); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	records, err := f.svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Fatalf("expected newest first")
		}
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Get(context.Background(), "user-1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenSkipsBlobOverReadLimit(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// The stored PDF is larger than the lowered limit; the fake PNG is not.
	f.svc.MaxUploadBytes = 32
	view := f.svc.Open(context.Background(), "user-1", res.Record.ID)
	defer view.Close()
	if view.Resume != nil {
		t.Fatalf("expected oversized resume to be skipped, got %d bytes", view.Resume.SizeBytes)
	}
	if view.Image == nil {
		t.Fatalf("expected image reference within the limit")
	}
	if f.refs.created != 1 {
		t.Fatalf("expected one reference, got %d", f.refs.created)
	}
}

func TestIngestRejectsOversizedPreview(t *testing.T) {
	f := newFixture(t)
	doc := pdftest.Resume()
	f.svc.MaxUploadBytes = int64(len(doc))
	f.conv.img.Data = make([]byte, len(doc)+1)

	_, err := f.svc.Ingest(context.Background(), ingestInput("user-1"))
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if stage, _, _ := FailedStage(err); stage != StageConvert {
		t.Fatalf("unexpected stage %q", stage)
	}
	if len(f.kv.writes()) != 0 {
		t.Fatalf("expected no kv writes")
	}
}
