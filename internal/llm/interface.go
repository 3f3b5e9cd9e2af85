package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// The interfaces below are the subsets of *openai.Client each sample uses;
// they are easy to mock in tests.

// ChatClient issues chat completions.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// CompletionClient issues legacy text completions.
type CompletionClient interface {
	CreateCompletion(ctx context.Context, req openai.CompletionRequest) (openai.CompletionResponse, error)
	CreateCompletionStream(ctx context.Context, req openai.CompletionRequest) (*openai.CompletionStream, error)
}

// ImageClient generates images.
type ImageClient interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// AudioClient transcribes and synthesizes speech.
type AudioClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// FileClient uploads, inspects and downloads files.
type FileClient interface {
	CreateFile(ctx context.Context, req openai.FileRequest) (openai.File, error)
	CreateFileBytes(ctx context.Context, req openai.FileBytesRequest) (openai.File, error)
	GetFile(ctx context.Context, fileID string) (openai.File, error)
	GetFileContent(ctx context.Context, fileID string) (openai.RawResponse, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// BatchClient submits and inspects batch jobs.
type BatchClient interface {
	CreateBatch(ctx context.Context, req openai.CreateBatchRequest) (openai.BatchResponse, error)
	RetrieveBatch(ctx context.Context, batchID string) (openai.BatchResponse, error)
}

// AssistantClient covers assistants, vector stores, threads, runs and messages.
type AssistantClient interface {
	CreateVectorStore(ctx context.Context, req openai.VectorStoreRequest) (openai.VectorStore, error)
	RetrieveVectorStore(ctx context.Context, vectorStoreID string) (openai.VectorStore, error)
	DeleteVectorStore(ctx context.Context, vectorStoreID string) (openai.VectorStoreDeleteResponse, error)

	CreateAssistant(ctx context.Context, req openai.AssistantRequest) (openai.Assistant, error)
	DeleteAssistant(ctx context.Context, assistantID string) (openai.AssistantDeleteResponse, error)

	CreateThreadAndRun(ctx context.Context, req openai.CreateThreadAndRunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, req openai.SubmitToolOutputsRequest) (openai.Run, error)
	DeleteThread(ctx context.Context, threadID string) (openai.ThreadDeleteResponse, error)

	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

var (
	_ ChatClient       = (*openai.Client)(nil)
	_ CompletionClient = (*openai.Client)(nil)
	_ ImageClient      = (*openai.Client)(nil)
	_ AudioClient      = (*openai.Client)(nil)
	_ FileClient       = (*openai.Client)(nil)
	_ BatchClient      = (*openai.Client)(nil)
	_ AssistantClient  = (*openai.Client)(nil)
)
