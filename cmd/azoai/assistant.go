package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/comigor/azoai-go/internal/assistant"
	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/samples"
	"github.com/comigor/azoai-go/pkg/tools"
)

var (
	assistantKeep     bool
	assistantQuestion string
	assistantDocument string
	assistantNoTools  bool
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Ask a retrieval augmented assistant about a sales document",
	Long: `Upload a sales history document, index it in a vector store, create an
assistant with file search and code interpreter, ask it a question and print
the resulting thread. Charts the assistant draws are saved as PNG files in
the working directory.

Function tools from the MCP servers in config.yaml (and a built-in clock) are
offered to the assistant unless --no-tools is set. The remote file, vector
store, assistant and thread are deleted afterwards unless --keep is set.`,
	Args: cobra.NoArgs,
	RunE: serviceRun([]config.Setting{config.Deployment}, func(ctx context.Context, e *env, _ []string) (err error) {
		opts := assistant.Options{Question: assistantQuestion}
		if assistantDocument != "" {
			doc, err := e.render.ReadArtifact(assistantDocument)
			if err != nil {
				return err
			}
			opts.Document = doc
			opts.DocumentName = assistantDocument
		}

		var manager *tools.Manager
		if !assistantNoTools {
			manager = tools.NewManager()
			manager.Register(tools.Clock{})
			manager.LoadMCPServers(ctx, e.cfg.MCPServers)
			defer func() { err = multierr.Append(err, manager.Close()) }()
		}

		w := &assistant.Workflow{
			Assistants: e.client,
			Files:      e.client,
			Tools:      manager,
			Render:     e.render,
			Deployment: e.cfg.OpenAI.Deployment,
			Retry:      samples.RetryFrom(e.cfg.Retry),
			Poll:       samples.PollFrom(e.cfg.Poll),
			Keep:       assistantKeep,
		}
		_, err = w.Run(ctx, opts)
		return err
	}),
}

func init() {
	assistantCmd.Flags().BoolVar(&assistantKeep, "keep", false, "keep the remote resources")
	assistantCmd.Flags().StringVar(&assistantQuestion, "question", "", "question to ask about the document")
	assistantCmd.Flags().StringVar(&assistantDocument, "document", "", "document to upload instead of the built-in sales data")
	assistantCmd.Flags().BoolVar(&assistantNoTools, "no-tools", false, "offer no function tools")
	rootCmd.AddCommand(assistantCmd)
}
