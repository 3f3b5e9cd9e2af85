package samples

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/comigor/azoai-go/internal/poll"
	"github.com/comigor/azoai-go/internal/render"
	"github.com/comigor/azoai-go/internal/retry"
)

type fakeService struct {
	chatReq   openai.ChatCompletionRequest
	complReq  openai.CompletionRequest
	imageReq  openai.ImageRequest
	audioReq  openai.AudioRequest
	audioBody []byte
	speechReq openai.CreateSpeechRequest
	speech    []byte

	fileReq openai.FileBytesRequest
	content map[string][]byte

	batchReq openai.CreateBatchRequest
	batches  []openai.BatchResponse
	polled   int
}

func (f *fakeService) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.chatReq = req
	return openai.ChatCompletionResponse{
		ID:      "chatcmpl-1",
		Created: 1700000000,
		Choices: []openai.ChatCompletionChoice{{
			Index:   0,
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Arr, that I can!"},
		}},
	}, nil
}

func (f *fakeService) CreateChatCompletionStream(context.Context, openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	return nil, errors.New("not streamed by the fake")
}

func (f *fakeService) CreateCompletion(_ context.Context, req openai.CompletionRequest) (openai.CompletionResponse, error) {
	f.complReq = req
	return openai.CompletionResponse{Choices: []openai.CompletionChoice{{Text: " Microsoft was founded on April 4, 1975."}}}, nil
}

func (f *fakeService) CreateCompletionStream(context.Context, openai.CompletionRequest) (*openai.CompletionStream, error) {
	return nil, errors.New("not streamed by the fake")
}

func (f *fakeService) CreateImage(_ context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.imageReq = req
	return openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: "https://images.example/monkey.png"}}}, nil
}

func (f *fakeService) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.audioReq = req
	b, err := io.ReadAll(req.Reader)
	if err != nil {
		return openai.AudioResponse{}, err
	}
	f.audioBody = b
	return openai.AudioResponse{Text: "hello from the audio file"}, nil
}

func (f *fakeService) CreateSpeech(_ context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error) {
	f.speechReq = req
	return openai.RawResponse{ReadCloser: io.NopCloser(bytes.NewReader(f.speech))}, nil
}

func (f *fakeService) CreateFile(context.Context, openai.FileRequest) (openai.File, error) {
	return openai.File{}, errors.New("unused")
}

func (f *fakeService) CreateFileBytes(_ context.Context, req openai.FileBytesRequest) (openai.File, error) {
	f.fileReq = req
	return openai.File{ID: "file-batch", FileName: req.Name, Purpose: string(req.Purpose)}, nil
}

func (f *fakeService) GetFile(_ context.Context, id string) (openai.File, error) {
	return openai.File{ID: id}, nil
}

func (f *fakeService) GetFileContent(_ context.Context, id string) (openai.RawResponse, error) {
	c, ok := f.content[id]
	if !ok {
		return openai.RawResponse{}, &openai.APIError{HTTPStatusCode: http.StatusNotFound, Message: "no such file"}
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(bytes.NewReader(c))}, nil
}

func (f *fakeService) DeleteFile(context.Context, string) error { return nil }

func (f *fakeService) CreateBatch(_ context.Context, req openai.CreateBatchRequest) (openai.BatchResponse, error) {
	f.batchReq = req
	return batch("batch-1", BatchValidating, ""), nil
}

func (f *fakeService) RetrieveBatch(_ context.Context, id string) (openai.BatchResponse, error) {
	b := f.batches[f.polled]
	f.polled++
	return b, nil
}

func batch(id, status, output string) openai.BatchResponse {
	var b openai.BatchResponse
	b.ID = id
	b.Status = status
	if output != "" {
		b.OutputFileID = &output
	}
	return b
}

func newRunner(svc *fakeService) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Runner{
		Chats:       svc,
		Completions: svc,
		Images:      svc,
		Audio:       svc,
		Files:       svc,
		Batches:     svc,
		Deployments: Deployments{Chat: "gpt-4o", Completion: "gpt-35-turbo-instruct", Image: "dalle-3", Whisper: "whisper", TTS: "tts"},
		Render:      &render.Renderer{Out: out, Fs: afero.NewMemMapFs()},
		Retry:       retry.None,
		Poll:        poll.Options{Interval: time.Millisecond},
	}, out
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	r, out := newRunner(svc)

	require.NoError(t, r.Chat(context.Background(), ChatOptions{}))
	require.Equal(t, "gpt-4o", svc.chatReq.Model)
	require.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: PirateSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: PirateUserPrompt},
	}, svc.chatReq.Messages)
	require.Contains(t, out.String(), "Index: 0, Chat Role: assistant.\nMessage:\nArr, that I can!\n")
}

func TestChatOptions_Turns(t *testing.T) {
	msgs := ChatOptions{Turns: []string{"Aye.", "What be a doubloon?"}}.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	require.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range []string{"Ahoy", ", matey", "!"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", frag)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL
	client := openai.NewClientWithConfig(cfg)

	r, out := newRunner(&fakeService{})
	r.Chats = client
	require.NoError(t, r.ChatStream(context.Background(), ChatOptions{}))
	require.Equal(t, "Ahoy, matey!\n", out.String())
}

func TestCompletion(t *testing.T) {
	svc := &fakeService{}
	r, out := newRunner(svc)

	require.NoError(t, r.Completion(context.Background(), ""))
	require.Equal(t, "gpt-35-turbo-instruct", svc.complReq.Model)
	require.Equal(t, CompletionPrompt, svc.complReq.Prompt)
	require.Equal(t, "Chatbot: Microsoft was founded on April 4, 1975.\n", out.String())
}

func TestImage(t *testing.T) {
	svc := &fakeService{}
	r, out := newRunner(svc)

	require.NoError(t, r.Image(context.Background(), ""))
	require.Equal(t, ImagePrompt, svc.imageReq.Prompt)
	require.Equal(t, openai.CreateImageSize1024x1024, svc.imageReq.Size)
	require.Equal(t, "dalle-3", svc.imageReq.Model)
	require.Equal(t, "https://images.example/monkey.png\n", out.String())
}

func TestTranscribe(t *testing.T) {
	svc := &fakeService{}
	r, out := newRunner(svc)
	require.NoError(t, afero.WriteFile(r.Render.Fs, "audio/sample.wav", []byte("RIFF...."), 0o644))

	require.NoError(t, r.Transcribe(context.Background(), "audio/sample.wav"))
	require.Equal(t, "sample.wav", svc.audioReq.FilePath)
	require.Equal(t, openai.AudioResponseFormatJSON, svc.audioReq.Format)
	require.Equal(t, []byte("RIFF...."), svc.audioBody)
	require.Equal(t, "Transcribed text:\nhello from the audio file\n", out.String())
}

func TestTranscribe_MissingFile(t *testing.T) {
	r, _ := newRunner(&fakeService{})
	err := r.Transcribe(context.Background(), "nope.wav")

	var ae *render.ArtifactError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "nope.wav", ae.Path)
}

func TestSpeech(t *testing.T) {
	svc := &fakeService{speech: []byte{0xff, 0xfb, 0x90, 0x00, 0x01}}
	r, out := newRunner(svc)

	require.NoError(t, r.Speech(context.Background(), SpeechOptions{Out: "out/speech.wav"}))
	require.Equal(t, SpeechText, svc.speechReq.Input)
	require.Equal(t, openai.VoiceAlloy, svc.speechReq.Voice)
	require.Equal(t, openai.SpeechResponseFormatWav, svc.speechReq.ResponseFormat)

	got, err := afero.ReadFile(r.Render.Fs, "out/speech.wav")
	require.NoError(t, err)
	require.Equal(t, svc.speech, got)
	require.Contains(t, out.String(), "out/speech.wav")
}

func TestUploadFile(t *testing.T) {
	svc := &fakeService{}
	r, out := newRunner(svc)
	require.NoError(t, afero.WriteFile(r.Render.Fs, "batch_tasks.jsonl", []byte(`{"custom_id":"1"}`), 0o644))

	file, err := r.UploadFile(context.Background(), "batch_tasks.jsonl", "")
	require.NoError(t, err)
	require.Equal(t, "file-batch", file.ID)
	require.Equal(t, openai.PurposeBatch, svc.fileReq.Purpose)
	require.Equal(t, "batch_tasks.jsonl", svc.fileReq.Name)
	require.Equal(t, "Uploaded file ID: file-batch\n", out.String())
}

func TestBatch_Completed(t *testing.T) {
	svc := &fakeService{
		batches: []openai.BatchResponse{
			batch("batch-1", BatchInProgress, ""),
			batch("batch-1", BatchFinalizing, ""),
			batch("batch-1", BatchCompleted, "file-out"),
		},
		content: map[string][]byte{"file-out": []byte("0123456789")},
	}
	r, out := newRunner(svc)

	b, err := r.Batch(context.Background(), "file-in")
	require.NoError(t, err)
	require.Equal(t, BatchCompleted, b.Status)
	require.Equal(t, 3, svc.polled)
	require.Equal(t, "file-in", svc.batchReq.InputFileID)
	require.Equal(t, openai.BatchEndpoint("/chat/completions"), svc.batchReq.Endpoint)
	require.Equal(t, "24h", svc.batchReq.CompletionWindow)
	require.Equal(t, "Created batch ID: batch-1\nRetrieved batch output file content length: 10\n", out.String())
}

func TestBatch_Failed(t *testing.T) {
	svc := &fakeService{batches: []openai.BatchResponse{batch("batch-1", BatchFailed, "")}}
	r, out := newRunner(svc)

	_, err := r.Batch(context.Background(), "file-in")
	var be *BatchError
	require.ErrorAs(t, err, &be)
	require.Equal(t, BatchFailed, be.Status)
	require.NotContains(t, out.String(), "content length")
}

type fakeUploads struct {
	created  openaigo.UploadNewParams
	part     []byte
	complete openaigo.UploadCompleteParams
}

func (f *fakeUploads) New(_ context.Context, body openaigo.UploadNewParams, _ ...option.RequestOption) (*openaigo.Upload, error) {
	f.created = body
	return &openaigo.Upload{ID: "upload_1"}, nil
}

func (f *fakeUploads) AddPart(_ context.Context, uploadID string, body openaigo.UploadPartNewParams, _ ...option.RequestOption) (*openaigo.UploadPart, error) {
	if uploadID != "upload_1" {
		return nil, fmt.Errorf("unknown upload %s", uploadID)
	}
	b, err := io.ReadAll(body.Data)
	if err != nil {
		return nil, err
	}
	f.part = b
	return &openaigo.UploadPart{ID: "part_1"}, nil
}

func (f *fakeUploads) Complete(_ context.Context, uploadID string, body openaigo.UploadCompleteParams, _ ...option.RequestOption) (*openaigo.Upload, error) {
	f.complete = body
	return &openaigo.Upload{ID: uploadID}, nil
}

func TestUpload(t *testing.T) {
	uploads := &fakeUploads{}
	r, out := newRunner(&fakeService{})
	r.Uploads = uploads
	data := strings.Repeat("line\n", 10)
	require.NoError(t, afero.WriteFile(r.Render.Fs, "tasks.txt", []byte(data), 0o644))

	done, err := r.Upload(context.Background(), "tasks.txt")
	require.NoError(t, err)
	require.Equal(t, "upload_1", done.ID)
	require.Equal(t, int64(len(data)), uploads.created.Bytes)
	require.Equal(t, UploadName, uploads.created.Filename)
	require.Equal(t, openaigo.FilePurposeAssistants, uploads.created.Purpose)
	require.Equal(t, []byte(data), uploads.part)
	require.Equal(t, []string{"part_1"}, uploads.complete.PartIDs)
	require.Equal(t, "Upload completed, upload ID = upload_1\n", out.String())
}
