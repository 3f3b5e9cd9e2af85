package samples

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/azoai-go/internal/poll"
	"github.com/comigor/azoai-go/internal/render"
)

// Batch job constants.
const (
	BatchEndpoint         = openai.BatchEndpoint("/chat/completions")
	BatchCompletionWindow = "24h"
)

// Batch statuses.
const (
	BatchValidating = "validating"
	BatchInProgress = "in_progress"
	BatchFinalizing = "finalizing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
	BatchExpired    = "expired"
	BatchCancelling = "cancelling"
	BatchCancelled  = "cancelled"
)

// BatchTerminal reports whether a batch in status will not change anymore.
func BatchTerminal(status string) bool {
	switch status {
	case BatchCompleted, BatchFailed, BatchExpired, BatchCancelled:
		return true
	}
	return false
}

// BatchError is a batch that finished without completing.
type BatchError struct {
	BatchID string
	Status  string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s ended %s", e.BatchID, e.Status)
}

// UploadFile uploads the file at path with the given purpose (batch when
// empty) and prints the new file id.
func (r *Runner) UploadFile(ctx context.Context, path string, purpose openai.PurposeType) (openai.File, error) {
	if purpose == "" {
		purpose = openai.PurposeBatch
	}
	data, err := r.Render.ReadArtifact(path)
	if err != nil {
		return openai.File{}, fmt.Errorf("upload file: %w", err)
	}
	file, err := call(ctx, r, "upload file", func(ctx context.Context) (openai.File, error) {
		return r.Files.CreateFileBytes(ctx, openai.FileBytesRequest{
			Name:    filepath.Base(path),
			Bytes:   data,
			Purpose: purpose,
		})
	})
	if err != nil {
		return openai.File{}, fmt.Errorf("upload file: %w", err)
	}
	r.Render.Line("Uploaded file ID: %s", file.ID)
	return file, nil
}

// Batch submits a chat completions batch over inputFileID, waits for it to
// finish and prints the size of its output file.
func (r *Runner) Batch(ctx context.Context, inputFileID string) (openai.BatchResponse, error) {
	req := openai.CreateBatchRequest{
		InputFileID:      inputFileID,
		Endpoint:         BatchEndpoint,
		CompletionWindow: BatchCompletionWindow,
	}
	batch, err := call(ctx, r, "create batch", func(ctx context.Context) (openai.BatchResponse, error) {
		return r.Batches.CreateBatch(ctx, req)
	})
	if err != nil {
		return batch, fmt.Errorf("create batch: %w", err)
	}
	r.Render.Line("Created batch ID: %s", batch.ID)

	id := batch.ID
	if !BatchTerminal(batch.Status) {
		batch, err = poll.Await(ctx, func(ctx context.Context) (openai.BatchResponse, error) {
			return call(ctx, r, "retrieve batch", func(ctx context.Context) (openai.BatchResponse, error) {
				return r.Batches.RetrieveBatch(ctx, id)
			})
		}, func(b openai.BatchResponse) bool {
			return BatchTerminal(b.Status)
		}, r.Poll, func(b openai.BatchResponse) {
			log.Info("batch status", "batch_id", b.ID, "status", b.Status,
				"completed", b.RequestCounts.Completed, "failed", b.RequestCounts.Failed)
		})
		if err != nil {
			return batch, fmt.Errorf("await batch %s: %w", id, err)
		}
	}
	if batch.Status != BatchCompleted {
		return batch, &BatchError{BatchID: batch.ID, Status: batch.Status}
	}
	if batch.OutputFileID == nil || *batch.OutputFileID == "" {
		r.Render.Line("Batch %s completed without an output file.", batch.ID)
		return batch, nil
	}

	n, err := r.contentLength(ctx, *batch.OutputFileID)
	if err != nil {
		return batch, err
	}
	r.Render.Line("Retrieved batch output file content length: %d", n)
	return batch, nil
}

func (r *Runner) contentLength(ctx context.Context, fileID string) (int64, error) {
	content, err := call(ctx, r, "file content", func(ctx context.Context) (openai.RawResponse, error) {
		return r.Files.GetFileContent(ctx, fileID)
	})
	if err != nil {
		return 0, fmt.Errorf("get file content %s: %w", fileID, err)
	}
	defer content.Close()
	n, err := io.Copy(io.Discard, content)
	if err != nil {
		return n, &render.ArtifactError{Op: "download", Path: fileID, Err: err}
	}
	return n, nil
}
