package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/repositories"
	"github.com/humanand/humanand/pkg/services"
)

// Output formats for the events command.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func eventsCmd() *cobra.Command {
	var (
		output    string
		eventType string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events <project>",
		Short: "Print a project's approved event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := offlineSetup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			repo, err := repositories.OpenEventRepository(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open event log: %w", err)
			}
			defer repo.Close()

			events, err := repo.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events = filterEvents(events, models.EventKind(strings.ToUpper(eventType)), limit)

			return writeEvents(cmd.OutOrStdout(), events, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json, yaml)")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "only events of this type (UPDATE, QUESTION)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only the most recent N events")

	return cmd
}

// filterEvents keeps events of kind (all if empty) and then the last limit
// of them (all if limit <= 0). Order is preserved.
func filterEvents(events []*models.Event, kind models.EventKind, limit int) []*models.Event {
	if kind != "" {
		filtered := make([]*models.Event, 0, len(events))
		for _, e := range events {
			if e.EventType == kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

func writeEvents(w io.Writer, events []*models.Event, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(events); err != nil {
			return err
		}
		return enc.Close()

	case outputText:
		for _, e := range events {
			line := fmt.Sprintf("%s  %-8s  <@%s>  %s",
				e.Timestamp.Format("2006-01-02 15:04"), e.EventType, e.AuthorUserID, e.FactText)
			if e.Permalink != "" {
				line += "  " + e.Permalink
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("unknown output format %q", output)
}

func knowledgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "knowledge [project]",
		Short: "Print a project's ground truth, or list projects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo := repositories.NewKnowledgeRepository(cfg.DataDir)
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := repo.Projects(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			text, err := repo.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("no ground truth recorded for %q", args[0])
			}
			_, err = fmt.Fprint(out, strings.TrimRight(text, "\n")+"\n")
			return err
		},
	}
}

func peopleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "people <user-id>",
		Short: "Summarize a user's project roles and recent activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := offlineSetup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			events, err := repositories.OpenEventRepository(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open event log: %w", err)
			}
			defer events.Close()

			people := services.NewPeopleService(repositories.NewKnowledgeRepository(cfg.DataDir), events, nil, logger)
			summary, err := people.Summary(cmd.Context(), strings.Trim(args[0], "<@>"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
}

// offlineSetup loads config and a logger for commands that only read local
// state. No chat or LLM credentials are required.
func offlineSetup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
