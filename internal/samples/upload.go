package samples

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// UploadName is the name the multipart upload is registered under.
const UploadName = "upload.txt"

// UploadService creates multipart uploads. The openai-go client satisfies it
// through NewUploadService.
type UploadService interface {
	New(ctx context.Context, body openaigo.UploadNewParams, opts ...option.RequestOption) (*openaigo.Upload, error)
	AddPart(ctx context.Context, uploadID string, body openaigo.UploadPartNewParams, opts ...option.RequestOption) (*openaigo.UploadPart, error)
	Complete(ctx context.Context, uploadID string, body openaigo.UploadCompleteParams, opts ...option.RequestOption) (*openaigo.Upload, error)
}

type uploadService struct {
	uploads *openaigo.UploadService
}

// NewUploadService adapts an openai-go client.
func NewUploadService(client *openaigo.Client) UploadService {
	return uploadService{uploads: &client.Uploads}
}

func (s uploadService) New(ctx context.Context, body openaigo.UploadNewParams, opts ...option.RequestOption) (*openaigo.Upload, error) {
	return s.uploads.New(ctx, body, opts...)
}

func (s uploadService) AddPart(ctx context.Context, uploadID string, body openaigo.UploadPartNewParams, opts ...option.RequestOption) (*openaigo.UploadPart, error) {
	return s.uploads.Parts.New(ctx, uploadID, body, opts...)
}

func (s uploadService) Complete(ctx context.Context, uploadID string, body openaigo.UploadCompleteParams, opts ...option.RequestOption) (*openaigo.Upload, error) {
	return s.uploads.Complete(ctx, uploadID, body, opts...)
}

// Upload sends the file at path through the multipart Uploads API: create
// the upload, add the whole file as one part, then complete it.
func (r *Runner) Upload(ctx context.Context, path string) (*openaigo.Upload, error) {
	data, err := r.Render.ReadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "text/plain"
	}

	upload, err := call(ctx, r, "create upload", func(ctx context.Context) (*openaigo.Upload, error) {
		return r.Uploads.New(ctx, openaigo.UploadNewParams{
			Bytes:    int64(len(data)),
			Filename: UploadName,
			MimeType: mimeType,
			Purpose:  openaigo.FilePurposeAssistants,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}

	part, err := call(ctx, r, "add upload part", func(ctx context.Context) (*openaigo.UploadPart, error) {
		return r.Uploads.AddPart(ctx, upload.ID, openaigo.UploadPartNewParams{
			Data: bytes.NewReader(data),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("add part to upload %s: %w", upload.ID, err)
	}

	done, err := call(ctx, r, "complete upload", func(ctx context.Context) (*openaigo.Upload, error) {
		return r.Uploads.Complete(ctx, upload.ID, openaigo.UploadCompleteParams{
			PartIDs: []string{part.ID},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("complete upload %s: %w", upload.ID, err)
	}
	r.Render.Line("Upload completed, upload ID = %s", done.ID)
	return done, nil
}
