// Package render prints service results to the console and persists binary
// artifacts (generated images, synthesized speech) to disk.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"

	"github.com/comigor/azoai-go/internal/ondata"
)

// FileFetcher resolves and downloads files referenced by assistant output.
type FileFetcher interface {
	GetFile(ctx context.Context, fileID string) (openai.File, error)
	GetFileContent(ctx context.Context, fileID string) (openai.RawResponse, error)
}

// Renderer writes text to Out and artifacts under Dir on Fs.
type Renderer struct {
	Out   io.Writer
	Fs    afero.Fs
	Dir   string
	Files FileFetcher
}

// New returns a Renderer writing artifacts to the OS filesystem.
func New(out io.Writer, dir string, files FileFetcher) *Renderer {
	return &Renderer{Out: out, Fs: afero.NewOsFs(), Dir: dir, Files: files}
}

// ArtifactError is a local I/O failure, tagged with the offending path.
type ArtifactError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// WriteArtifact copies r to name (relative to Dir) and returns the full path.
func (r *Renderer) WriteArtifact(name string, src io.Reader) (string, error) {
	p := name
	if r.Dir != "" && !filepath.IsAbs(name) {
		p = filepath.Join(r.Dir, name)
	}
	if err := afero.WriteReader(r.Fs, p, src); err != nil {
		return p, &ArtifactError{Op: "write", Path: p, Err: err}
	}
	return p, nil
}

// ReadArtifact reads back a file written by WriteArtifact.
func (r *Renderer) ReadArtifact(p string) ([]byte, error) {
	b, err := afero.ReadFile(r.Fs, p)
	if err != nil {
		return nil, &ArtifactError{Op: "read", Path: p, Err: err}
	}
	return b, nil
}

// Thread prints assistant thread messages in the given order. Text content is
// printed with its file annotations; image content is downloaded and saved
// as <filename>.png.
func (r *Renderer) Thread(ctx context.Context, messages []openai.Message) error {
	for _, msg := range messages {
		fmt.Fprintf(r.Out, "[%s]: ", strings.ToUpper(msg.Role))
		for _, content := range msg.Content {
			if content.Text != nil && content.Text.Value != "" {
				fmt.Fprintln(r.Out, content.Text.Value)
				annotations := parseAnnotations(content.Text.Annotations)
				if len(annotations) > 0 {
					fmt.Fprintln(r.Out)
				}
				for _, a := range annotations {
					if a.FileCitation != nil && a.FileCitation.FileID != "" {
						fmt.Fprintf(r.Out, "* File citation, file ID: %s\n", a.FileCitation.FileID)
					}
					if a.FilePath != nil && a.FilePath.FileID != "" {
						fmt.Fprintf(r.Out, "* File output, new file ID: %s\n", a.FilePath.FileID)
					}
				}
			}
			if content.ImageFile != nil && content.ImageFile.FileID != "" {
				name, err := r.saveImage(ctx, content.ImageFile.FileID)
				if err != nil {
					return err
				}
				fmt.Fprintf(r.Out, "<image: %s>\n", name)
			}
		}
		fmt.Fprintln(r.Out)
	}
	return nil
}

func (r *Renderer) saveImage(ctx context.Context, fileID string) (string, error) {
	if r.Files == nil {
		return "", fmt.Errorf("render: no file client to fetch image %s", fileID)
	}
	info, err := r.Files.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("render: get file %s: %w", fileID, err)
	}
	content, err := r.Files.GetFileContent(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("render: download file %s: %w", fileID, err)
	}
	defer content.Close()

	name := ArtifactName(fileID, info.FileName, ".png")
	if _, err := r.WriteArtifact(name, content); err != nil {
		return "", err
	}
	return name, nil
}

// ArtifactName derives a local file name from the remote file name, falling
// back to the file id, and makes sure it carries ext.
func ArtifactName(fileID, remoteName, ext string) string {
	base := path.Base(filepath.ToSlash(remoteName))
	if base == "." || base == "/" {
		base = ""
	}
	base = sanitize(base)
	if base == "" {
		base = sanitize(fileID)
	}
	if !strings.HasSuffix(strings.ToLower(base), ext) {
		base += ext
	}
	return base
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}

type annotation struct {
	Type         string      `json:"type"`
	Text         string      `json:"text"`
	FileCitation *fileRefRaw `json:"file_citation,omitempty"`
	FilePath     *fileRefRaw `json:"file_path,omitempty"`
}

type fileRefRaw struct {
	FileID string `json:"file_id"`
}

// parseAnnotations normalizes the loosely typed annotations of a text item.
func parseAnnotations[T any](raw []T) []annotation {
	out := make([]annotation, 0, len(raw))
	for _, item := range raw {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var a annotation
		if err := json.Unmarshal(b, &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Citations prints the intent, when present, and then each citation's
// content once, in the order the service returned them.
func (r *Renderer) Citations(res ondata.Result) {
	if res.Intent != "" {
		fmt.Fprintf(r.Out, "Intent: %s\n", res.Intent)
	}
	for _, c := range res.Citations {
		fmt.Fprintf(r.Out, "Citation: %s\n", c.Content)
	}
}

// Answer prints a grounded answer followed by its citations.
func (r *Renderer) Answer(res ondata.Result) {
	if res.Answer != "" {
		fmt.Fprintf(r.Out, "Answer: %s\n", res.Answer)
	}
	r.Citations(res)
}

// Transcript prints transcribed text.
func (r *Renderer) Transcript(text string) {
	fmt.Fprintln(r.Out, "Transcribed text:")
	fmt.Fprintln(r.Out, text)
}

// ChatChoices prints each chat choice with its role.
func (r *Renderer) ChatChoices(resp openai.ChatCompletionResponse) {
	if resp.ID != "" {
		fmt.Fprintf(r.Out, "Model ID=%s is created at %d.\n", resp.ID, resp.Created)
	}
	for _, choice := range resp.Choices {
		fmt.Fprintf(r.Out, "Index: %d, Chat Role: %s.\n", choice.Index, choice.Message.Role)
		fmt.Fprintln(r.Out, "Message:")
		fmt.Fprintln(r.Out, choice.Message.Content)
	}
}

// CompletionChoices prints legacy completion choices.
func (r *Renderer) CompletionChoices(resp openai.CompletionResponse) {
	if len(resp.Choices) == 1 {
		fmt.Fprintf(r.Out, "Chatbot: %s\n", strings.TrimSpace(resp.Choices[0].Text))
		return
	}
	for _, choice := range resp.Choices {
		fmt.Fprintf(r.Out, "Index: %d, Text: %s.\n", choice.Index, choice.Text)
	}
}

// Images prints each generated image's URL (and revised prompt, if any).
func (r *Renderer) Images(resp openai.ImageResponse) {
	for _, img := range resp.Data {
		if img.URL != "" {
			fmt.Fprintln(r.Out, img.URL)
		}
		if img.RevisedPrompt != "" {
			fmt.Fprintf(r.Out, "Revised prompt: %s\n", img.RevisedPrompt)
		}
	}
}

// Stream writes a streamed fragment without a trailing newline.
func (r *Renderer) Stream(fragment string) {
	fmt.Fprint(r.Out, fragment)
}

// Line writes a formatted line.
func (r *Renderer) Line(format string, args ...any) {
	fmt.Fprintf(r.Out, format+"\n", args...)
}
