package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/buession/buession-logging-sub001/internal/ingest"
	"github.com/buession/buession-logging-sub001/pkg/logging"
)

var emitCmd = &cobra.Command{
	Use:   "emit [file]",
	Short: "Deliver one event read from a JSON file or stdin to the configured sinks",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEmit,
}

func init() {
	rootCmd.AddCommand(emitCmd)
}

func runEmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open event file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var req ingest.EventRequest
	dec := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	e, err := req.ToEvent(ctx)
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	results := logging.NewDispatcher(sinks.handlers, logging.WithDispatchLogger(log)).Dispatch(ctx, e)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed int
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, results[name])
		if results[name] == logging.Failure {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sinks failed", failed, len(results))
	}
	return nil
}
