package samples

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Default completion prompts.
const (
	CompletionPrompt       = "When was Microsoft founded?"
	StreamCompletionPrompt = "How to bake a cake?"
)

func (r *Runner) completionRequest(prompt string, stream bool) openai.CompletionRequest {
	return openai.CompletionRequest{
		Model:     r.Deployments.Completion,
		Prompt:    prompt,
		MaxTokens: 256,
		Stream:    stream,
	}
}

// Completion sends one legacy completion and prints the answer.
func (r *Runner) Completion(ctx context.Context, prompt string) error {
	if prompt == "" {
		prompt = CompletionPrompt
	}
	req := r.completionRequest(prompt, false)
	resp, err := call(ctx, r, "completion", func(ctx context.Context) (openai.CompletionResponse, error) {
		return r.Completions.CreateCompletion(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	r.Render.CompletionChoices(resp)
	return nil
}

// CompletionStream streams one legacy completion.
func (r *Runner) CompletionStream(ctx context.Context, prompt string) error {
	if prompt == "" {
		prompt = StreamCompletionPrompt
	}
	req := r.completionRequest(prompt, true)
	stream, err := call(ctx, r, "completion stream", func(ctx context.Context) (*openai.CompletionStream, error) {
		return r.Completions.CreateCompletionStream(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("completion stream: %w", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			r.Render.Line("")
			return nil
		}
		if err != nil {
			return fmt.Errorf("completion stream: %w", err)
		}
		for _, choice := range chunk.Choices {
			r.Render.Stream(choice.Text)
		}
	}
}
