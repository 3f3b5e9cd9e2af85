package samples

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Default chat prompts.
const (
	PirateSystemPrompt = "You are a helpful assistant. You will talk like a pirate."
	PirateUserPrompt   = "Can you help me?"
)

// ChatOptions shape the chat request. Turns are appended after the system
// and user prompts, alternating assistant and user roles.
type ChatOptions struct {
	System string
	User   string
	Turns  []string
}

// Messages builds the conversation sent to the model.
func (o ChatOptions) Messages() []openai.ChatCompletionMessage {
	system, user := o.System, o.User
	if system == "" {
		system = PirateSystemPrompt
	}
	if user == "" {
		user = PirateUserPrompt
	}
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
	for i, turn := range o.Turns {
		role := openai.ChatMessageRoleAssistant
		if i%2 == 1 {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn})
	}
	return msgs
}

// Chat sends one chat completion and prints its choices.
func (r *Runner) Chat(ctx context.Context, opts ChatOptions) error {
	req := openai.ChatCompletionRequest{
		Model:    r.Deployments.Chat,
		Messages: opts.Messages(),
	}
	resp, err := call(ctx, r, "chat", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return r.Chats.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	r.Render.ChatChoices(resp)
	return nil
}

// ChatStream streams one chat completion, printing fragments as they arrive.
func (r *Runner) ChatStream(ctx context.Context, opts ChatOptions) error {
	req := openai.ChatCompletionRequest{
		Model:    r.Deployments.Chat,
		Messages: opts.Messages(),
		Stream:   true,
	}
	stream, err := call(ctx, r, "chat stream", func(ctx context.Context) (*openai.ChatCompletionStream, error) {
		return r.Chats.CreateChatCompletionStream(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			r.Render.Line("")
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat completion stream: %w", err)
		}
		for _, choice := range chunk.Choices {
			r.Render.Stream(choice.Delta.Content)
		}
	}
}
