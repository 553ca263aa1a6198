package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Wire the pipelines and serve the query and ingestion endpoints until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, appOptions{Verify: true})
			if err != nil {
				return err
			}
			defer a.Close()

			log.Printf("sercha-rag %s starting (environment=%s)", version, a.cfg.Environment)

			// SIGHUP re-reads PROMPTS_DIR without a restart.
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go a.reloadPromptsOn(cmd.Context(), hup)

			serverCfg := http.DefaultConfig()
			serverCfg.Host = a.cfg.APIHost
			serverCfg.Port = a.cfg.APIPort
			serverCfg.Version = version
			serverCfg.Logger = a.logger
			serverCfg.MaxUploadSize = a.cfg.MaxFileSize + 1<<20

			server := http.NewServer(serverCfg, a.query, a.ingestion)
			return server.Start(cmd.Context())
		},
	}
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Ingest one PDF",
		Long:  "Load, chunk, embed and store one PDF. Re-ingesting a file replaces its chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("meta")
			metadata, err := parseMetadata(pairs)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.ingestion.Ingest(cmd.Context(), args[0], metadata)
			if !result.Success {
				return result.Err()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s: %d pages, %d chunks in %s\n",
				result.DocumentID, result.Pages, result.Chunks, result.Duration)
			return err
		},
	}
	cmd.Flags().StringArray("meta", nil, "metadata attached to every chunk, as key=value (repeatable)")
	return cmd
}

func newIngestDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-dir <directory>",
		Short: "Ingest every file in a directory",
		Long:  "Ingest each file in the directory. A failing file is reported and never stops the batch.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.ingestion.IngestMany(cmd.Context(), args[0])
			return printStats(cmd.OutOrStdout(), stats)
		},
	}
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question about the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noSources, _ := cmd.Flags().GetBool("no-sources")

			a, err := loadApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.query.Answer(cmd.Context(), strings.Join(args, " "), !noSources)
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Bool("no-sources", false, "omit source citations")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the vector store and LLM are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.query.Ready(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				return err
			}
			if status.Status != domain.HealthStatusHealthy {
				return fmt.Errorf("status %s", status.Status)
			}
			return nil
		},
	}
}

// parseMetadata turns key=value pairs into chunk metadata.
func parseMetadata(pairs []string) (domain.Metadata, error) {
	metadata := domain.Metadata{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q: expected key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func printStats(w io.Writer, stats domain.IngestionStats) error {
	if _, err := fmt.Fprintf(w, "Total: %d  Successful: %d  Failed: %d\n",
		stats.Total, stats.Successful, stats.Failed); err != nil {
		return err
	}
	for _, e := range stats.Errors {
		if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
			return err
		}
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Total)
	}
	return nil
}

func printResult(w io.Writer, result domain.QueryResult) error {
	if result.Answer != nil {
		if _, err := fmt.Fprintln(w, *result.Answer); err != nil {
			return err
		}
	}
	if len(result.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, s := range result.Sources {
			fmt.Fprintf(w, "  [%d] %s (page %d): %s\n", i+1, s.Source, s.Page, strings.ReplaceAll(s.Content, "\n", " "))
		}
	}
	if !result.Success && result.Error != nil {
		if result.Answer == nil {
			return result.Error
		}
		// Refusals are a normal answer; the reason goes to the log.
		log.Printf("%s: %s", result.Error.Kind, result.Error.Message)
	}
	return nil
}
