package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/ondata"
	"github.com/comigor/azoai-go/internal/samples"
)

var (
	ondataQuestion string
	ondataAnswer   bool
)

var ondataCmd = &cobra.Command{
	Use:   "ondata",
	Short: "Chat grounded on an Azure AI Search index",
	Args:  cobra.NoArgs,
	RunE: serviceRun([]config.Setting{config.Deployment, config.SearchEndpoint, config.SearchIndex},
		func(ctx context.Context, e *env, _ []string) error {
			client, err := ondata.NewClient(e.cfg.OpenAI, e.cred, e.http)
			if err != nil {
				return err
			}
			svc := &ondata.Service{
				Completions: &client.Chat.Completions,
				Deployment:  e.cfg.OpenAI.Deployment,
				Source:      ondata.FromConfig(e.cfg.Search),
				Retry:       samples.RetryFrom(e.cfg.Retry),
			}
			res, err := svc.Ask(ctx, ondataQuestion)
			if err != nil {
				return err
			}
			if ondataAnswer {
				e.render.Answer(res)
				return nil
			}
			e.render.Citations(res)
			return nil
		}),
}

func init() {
	ondataCmd.Flags().StringVar(&ondataQuestion, "question", "", "question to ask")
	ondataCmd.Flags().BoolVar(&ondataAnswer, "answer", false, "print the grounded answer before the citations")
	rootCmd.AddCommand(ondataCmd)
}
