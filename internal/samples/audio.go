package samples

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/azoai-go/internal/render"
)

// SpeechText is the default text to synthesize.
const SpeechText = "the quick brown chicken jumped over the lazy dogs"

// Transcribe sends the audio file at path for transcription and prints the
// text.
func (r *Runner) Transcribe(ctx context.Context, path string) error {
	resp, err := call(ctx, r, "transcription", func(ctx context.Context) (openai.AudioResponse, error) {
		// The reader is consumed by each attempt, so reopen it every time.
		f, err := r.Render.Fs.Open(path)
		if err != nil {
			return openai.AudioResponse{}, &render.ArtifactError{Op: "open", Path: path, Err: err}
		}
		defer f.Close()
		return r.Audio.CreateTranscription(ctx, openai.AudioRequest{
			Model:    r.Deployments.Whisper,
			FilePath: filepath.Base(path),
			Reader:   f,
			Format:   openai.AudioResponseFormatJSON,
		})
	})
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	r.Render.Transcript(resp.Text)
	return nil
}

// SpeechOptions shape a text-to-speech request.
type SpeechOptions struct {
	Text  string
	Voice openai.SpeechVoice
	Out   string
}

// Speech synthesizes text and writes the audio to opts.Out.
func (r *Runner) Speech(ctx context.Context, opts SpeechOptions) error {
	if opts.Text == "" {
		opts.Text = SpeechText
	}
	if opts.Voice == "" {
		opts.Voice = openai.VoiceAlloy
	}
	if opts.Out == "" {
		opts.Out = "speech.mp3"
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(r.Deployments.TTS),
		Input:          opts.Text,
		Voice:          opts.Voice,
		ResponseFormat: speechFormat(opts.Out),
	}
	audio, err := call(ctx, r, "speech", func(ctx context.Context) (openai.RawResponse, error) {
		return r.Audio.CreateSpeech(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	defer audio.Close()

	r.Render.Line("Streaming response to %s", opts.Out)
	if _, err := r.Render.WriteArtifact(opts.Out, audio); err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	r.Render.Line("Finished streaming")
	return nil
}

func speechFormat(out string) openai.SpeechResponseFormat {
	switch filepath.Ext(out) {
	case ".wav":
		return openai.SpeechResponseFormatWav
	case ".opus":
		return openai.SpeechResponseFormatOpus
	case ".aac":
		return openai.SpeechResponseFormatAac
	case ".flac":
		return openai.SpeechResponseFormatFlac
	case ".pcm":
		return openai.SpeechResponseFormatPcm
	default:
		return openai.SpeechResponseFormatMp3
	}
}
