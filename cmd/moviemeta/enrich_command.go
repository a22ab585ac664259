package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Sternrassler/moviemeta/pkg/enrich"
	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/spf13/cobra"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var apiKey string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "enrich <file|->",
		Short: "Enrich a list of titles and print the records",
		Long: "Reads a JSON array of {\"title\",\"watchedDate\"} objects or one title per line\n" +
			"from a file (or stdin with \"-\") and prints the enriched records.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logCfg := cfg.LoggingConfig()
			logCfg.Output = cmd.ErrOrStderr()
			logger := logging.Setup(logCfg)

			data, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			inputs, err := parseInputs(data)
			if err != nil {
				return err
			}

			credential := strings.TrimSpace(apiKey)
			if credential == "" {
				credential = cfg.TMDB.APIKey
			}

			stderr := cmd.ErrOrStderr()
			p, err := newPipeline(cfg, logger, enrich.WithProgress(func(done, total int) {
				fmt.Fprintf(stderr, "Resolved %d/%d titles\n", done, total)
			}))
			if err != nil {
				return err
			}
			defer p.Close()

			records, err := p.enricher.Enrich(cmd.Context(), inputs, credential)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeRecordsJSON(cmd.OutOrStdout(), records)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "TMDB API key (overrides tmdb.api_key and TMDB_API_KEY)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output records as JSON")

	return cmd
}

func readSource(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// parseInputs accepts a JSON array of inputs or newline-separated titles.
// Blank lines are skipped.
func parseInputs(data []byte) ([]movie.Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var inputs []movie.Input
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("parse input json: %w", err)
		}
		return inputs, nil
	}

	inputs := []movie.Input{}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		title := strings.TrimSpace(scanner.Text())
		if title == "" {
			continue
		}
		inputs = append(inputs, movie.Input{Title: title})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan titles: %w", err)
	}
	return inputs, nil
}

func writeRecordsJSON(w io.Writer, records []movie.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		Movies []movie.Record `json:"movies"`
	}{Movies: records})
}

func renderRecords(records []movie.Record) string {
	headers := []string{"ID", "Title", "Year", "TMDB", "Genres", "Poster"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ID,
			rec.Title,
			optionalInt(rec.ReleaseYear),
			optionalInt64(rec.CatalogID),
			joinGenres(rec.Genres),
			optionalString(rec.PosterURL),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignRight})
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optionalInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func joinGenres(genres []int) string {
	if len(genres) == 0 {
		return "-"
	}
	parts := make([]string, len(genres))
	for i, g := range genres {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ",")
}
