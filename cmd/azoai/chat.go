package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/samples"
)

var (
	chatStream bool
	chatSystem string
	chatUser   string
	chatTurns  []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send a chat completion",
	Long: `Send a chat completion to the configured deployment.

By default the assistant is told to talk like a pirate and is asked
"Can you help me?". Extra --turn flags continue the conversation,
alternating assistant and user messages.`,
	Args: cobra.NoArgs,
	RunE: serviceRun([]config.Setting{config.Deployment}, func(ctx context.Context, e *env, _ []string) error {
		opts := samples.ChatOptions{System: chatSystem, User: chatUser, Turns: chatTurns}
		if chatStream {
			return e.runner().ChatStream(ctx, opts)
		}
		return e.runner().Chat(ctx, opts)
	}),
}

var (
	completionStream bool
	completionPrompt string
)

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Send a legacy text completion",
	Args:  cobra.NoArgs,
	RunE: serviceRun(nil, func(ctx context.Context, e *env, _ []string) error {
		if completionStream {
			return e.runner().CompletionStream(ctx, completionPrompt)
		}
		return e.runner().Completion(ctx, completionPrompt)
	}),
}

var imagePrompt string

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Generate an image",
	Args:  cobra.NoArgs,
	RunE: serviceRun(nil, func(ctx context.Context, e *env, _ []string) error {
		return e.runner().Image(ctx, imagePrompt)
	}),
}

func init() {
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "stream the answer as it is generated")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "system prompt")
	chatCmd.Flags().StringVar(&chatUser, "user", "", "first user message")
	chatCmd.Flags().StringArrayVar(&chatTurns, "turn", nil, "follow-up turn (repeatable; assistant, user, assistant, ...)")

	completionCmd.Flags().BoolVar(&completionStream, "stream", false, "stream the answer as it is generated")
	completionCmd.Flags().StringVar(&completionPrompt, "prompt", "", "prompt (default depends on --stream)")

	imageCmd.Flags().StringVar(&imagePrompt, "prompt", "", "image description")

	rootCmd.AddCommand(chatCmd, completionCmd, imageCmd)
}
