// azoai
//
// Sample workflows against Azure OpenAI (or OpenAI): chat, completions,
// images, audio, files, batches, uploads, on-your-data chat and a retrieval
// augmented assistant.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/logger"
)

var (
	version    = "dev"
	configPath string
	logLevel   string
	timeout    time.Duration
	noHistory  bool
)

var rootCmd = &cobra.Command{
	Use:   "azoai",
	Short: "azoai - Azure OpenAI sample workflows",
	Long: `azoai runs small sample workflows against Azure OpenAI.

Configuration comes from environment variables (AZURE_OPENAI_ENDPOINT,
AZURE_OPENAI_API_KEY, AZURE_OPENAI_DEPLOYMENT_ID, ...) and an optional
config.yaml; see "azoai config show".

  azoai chat [--stream]                 Chat completion (talks like a pirate)
  azoai completion [--stream]           Legacy text completion
  azoai image                           Generate an image
  azoai transcribe FILE                 Transcribe an audio file
  azoai speech --out FILE               Synthesize speech
  azoai ondata                          Chat grounded on an Azure AI Search index
  azoai assistant                       Retrieval augmented assistant over a sales document
  azoai files upload FILE               Upload a batch input file
  azoai batch FILE_ID                   Run a chat completions batch
  azoai upload FILE                     Multipart upload
  azoai history                         Show past runs
  azoai config show                     Print the effective settings`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
				return err
			}
		}
		if logLevel != "" {
			logger.SetLevel(logLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml, or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "overall time limit, e.g. 5m (0 = none)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.L.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
