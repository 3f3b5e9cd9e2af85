package main

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/samples"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: serviceRun(nil, func(ctx context.Context, e *env, args []string) error {
		return e.runner().Transcribe(ctx, args[0])
	}),
}

var (
	speechText  string
	speechVoice string
	speechOut   string
)

var speechCmd = &cobra.Command{
	Use:   "speech",
	Short: "Synthesize speech into an audio file",
	Long: `Synthesize speech into an audio file. The audio format follows the
extension of --out (mp3, wav, opus, aac, flac or pcm).`,
	Args: cobra.NoArgs,
	RunE: serviceRun(nil, func(ctx context.Context, e *env, _ []string) error {
		return e.runner().Speech(ctx, samples.SpeechOptions{
			Text:  speechText,
			Voice: openai.SpeechVoice(speechVoice),
			Out:   speechOut,
		})
	}),
}

func init() {
	speechCmd.Flags().StringVar(&speechText, "text", "", "text to speak")
	speechCmd.Flags().StringVar(&speechVoice, "voice", string(openai.VoiceAlloy), "voice")
	speechCmd.Flags().StringVar(&speechOut, "out", "speech.mp3", "output file")

	rootCmd.AddCommand(transcribeCmd, speechCmd)
}
