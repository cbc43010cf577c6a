// Command ctrl-ai-cli runs one text through the provider gateway without the
// desktop pipeline: no selection capture, no review, no paste.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ctrl-ai/src/config"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/runtimeinit"
)

const (
	maxInputSizeMB = 1
	maxInputSize   = maxInputSizeMB * 1024 * 1024
)

type cliOptions struct {
	mode        string
	instruction string
	filePath    string
	text        string
	jsonOutput  bool
	verbose     bool
	apiKeyPath  string
}

func main() {
	cmd := newRootCmd(&cliOptions{}, os.Stdin, os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ctrl-ai-cli",
		Short:         "Process text with a Ctrl+AI mode and print the result",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", string(llm.ModeRefactor), "refactor|redactor|commander|explain")
	cmd.Flags().StringVar(&opts.instruction, "instruction", "", "Instruction for commander and explain")
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to a text file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.text, "text", "", "Inline text to process")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to OpenRouter API key file (highest precedence)")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	cmd.MarkFlagsOneRequired("file", "text")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	if opts.verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	mode, err := llm.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	text, err := readInput(opts, stdin)
	if err != nil {
		return err
	}

	req := llm.Request{Text: text, Mode: mode, Instruction: strings.TrimSpace(opts.instruction)}
	if err := req.Validate(); err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
		SkipInput:   true,
	})
	if err != nil {
		return err
	}
	log.Printf("Provider: %s", rt.Gateway.ProviderName())

	start := time.Now()
	res := rt.Gateway.Process(ctx, req)
	elapsed := time.Since(start)
	log.Printf("Processed %d chars in %v", len(text), elapsed)

	return outputResult(stdout, mode, res, elapsed, opts.jsonOutput)
}

func readInput(opts cliOptions, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	switch {
	case opts.text != "":
		data = []byte(opts.text)
	case opts.filePath == "-":
		data, err = io.ReadAll(io.LimitReader(stdin, maxInputSize+1))
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	default:
		data, err = os.ReadFile(opts.filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", opts.filePath, err)
		}
	}

	if len(data) > maxInputSize {
		return "", fmt.Errorf("input exceeds maximum size of %d MB", maxInputSizeMB)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("input is empty")
	}
	return string(data), nil
}

type cliResult struct {
	Mode      string  `json:"mode"`
	Text      string  `json:"text"`
	Provider  string  `json:"provider"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
}

func outputResult(w io.Writer, mode llm.Mode, res llm.Result, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, res.Text)
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cliResult{
		Mode:      mode.String(),
		Text:      res.Text,
		Provider:  res.Provider,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
