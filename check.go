package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/humanand/humanand/pkg/llm"
	"github.com/humanand/humanand/pkg/slack"
)

var errCheckFailed = errors.New("one or more checks failed")

func checkCmd() *cobra.Command {
	var (
		skipSlack bool
		skipLLM   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify Slack and LLM credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := offlineSetup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ok := true

			if !skipSlack {
				botID, err := slack.NewWebClient(cfg.Slack, logger).BotUserID(ctx)
				if err != nil {
					ok = false
					report(out, false, "Slack: %v", err)
				} else {
					report(out, true, "Slack: authenticated as <@%s>", botID)
				}
			}

			if !skipLLM {
				client, err := llm.NewClientFromConfig(ctx, cfg.LLM, logger)
				if err != nil {
					ok = false
					report(out, false, "LLM: %v", err)
				} else {
					result := llm.NewConnectionTester(cfg.LLM.Timeout).Test(ctx, client)
					ok = ok && result.Success
					report(out, result.Success, "%s", result.Message)
				}
			}

			if !ok {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSlack, "skip-slack", false, "don't call the Slack API")
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "don't call the LLM provider")

	return cmd
}

func report(w io.Writer, ok bool, format string, args ...any) {
	mark := "OK  "
	if !ok {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}
