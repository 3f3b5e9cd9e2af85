package main

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/llm"
	"github.com/comigor/azoai-go/internal/samples"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage service files",
}

var filesPurpose string

var filesUploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a file (purpose batch by default)",
	Args:  cobra.ExactArgs(1),
	RunE: serviceRun(nil, func(ctx context.Context, e *env, args []string) error {
		_, err := e.runner().UploadFile(ctx, args[0], openai.PurposeType(filesPurpose))
		return err
	}),
}

var batchCmd = &cobra.Command{
	Use:   "batch INPUT_FILE_ID",
	Short: "Run a chat completions batch over an uploaded file and wait for it",
	Args:  cobra.ExactArgs(1),
	RunE: serviceRun(nil, func(ctx context.Context, e *env, args []string) error {
		_, err := e.runner().Batch(ctx, args[0])
		return err
	}),
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a file through the multipart Uploads API",
	Args:  cobra.ExactArgs(1),
	RunE: serviceRun(nil, func(ctx context.Context, e *env, args []string) error {
		client, err := llm.NewRequestClient(e.cfg.OpenAI, e.cred, e.http)
		if err != nil {
			return err
		}
		r := e.runner()
		r.Uploads = samples.NewUploadService(&client)
		_, err = r.Upload(ctx, args[0])
		return err
	}),
}

func init() {
	filesUploadCmd.Flags().StringVar(&filesPurpose, "purpose", string(openai.PurposeBatch), "file purpose")
	filesCmd.AddCommand(filesUploadCmd)

	rootCmd.AddCommand(filesCmd, batchCmd, uploadCmd)
}
