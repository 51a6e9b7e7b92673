package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/translator"
)

func newBatchCommand(cc *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit and manage asynchronous batch jobs",
	}

	batchCmd.AddCommand(newBatchCreateCommand(cc))
	batchCmd.AddCommand(newBatchStatusCommand(cc))
	batchCmd.AddCommand(newBatchResultsCommand(cc))
	batchCmd.AddCommand(newBatchCancelCommand(cc))

	return batchCmd
}

func newBatchCreateCommand(cc *commandContext) *cobra.Command {
	var (
		modelKey string
		file     string
		name     string
		callerID string
		system   string
		example  string
		timeout  int
	)

	cmd := &cobra.Command{
		Use:   "create --model <provider>/<model> --file <items.jsonl|->",
		Short: "Submit a batch job",
		Long: `Submit a batch job. Each line of the input file is either a JSON object
{"id": "...", "messages": [...], "options": {...}} or a plain-text prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelKey == "" || file == "" {
				return errors.New("--model and --file are required")
			}

			in, closeFn, err := openInput(cmd, file)
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := readBatchItems(in, system)
			if err != nil {
				return err
			}

			opts := models.BatchOptions{Name: name, CallerID: callerID, TimeoutSeconds: timeout}
			if strings.TrimSpace(example) != "" {
				if !json.Valid([]byte(example)) {
					return errors.New("--example must be valid JSON")
				}
				opts.Defaults.Example = json.RawMessage(example)
			}

			ctx := cmd.Context()
			rt, _, _, err := cc.newRouter(ctx)
			if err != nil {
				return err
			}
			sub, err := rt.CreateBatch(ctx, modelKey, items, opts)
			if err != nil {
				return err
			}

			providerName, _, _ := provider.SplitKey(modelKey)
			if cc.jsonOutput {
				return writeJSON(cmd, translator.FromSubmission(providerName, sub))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted %s batch %s (%d items, %dh window)\n", providerName, sub.JobID, len(sub.CorrelationIDs), sub.WindowHours)
			view := newTableView("#", "Correlation ID").rightAlign("#")
			for i, id := range sub.CorrelationIDs {
				view.add(strconv.Itoa(i), id)
			}
			return view.writeTo(out)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&modelKey, "model", "m", "", "Model key, e.g. openai/gpt-4o-mini")
	flags.StringVarP(&file, "file", "f", "", "Input file, or - for stdin")
	flags.StringVar(&name, "name", "", "Batch name, used as correlation id prefix")
	flags.StringVar(&callerID, "caller-id", "", "Caller identifier")
	flags.StringVarP(&system, "system", "s", "", "System prompt prepended to every item")
	flags.StringVarP(&example, "example", "e", "", "JSON example value requesting structured output")
	flags.IntVar(&timeout, "timeout", 0, "Completion timeout in seconds (rounded up to whole hours, 1h to 24h)")

	return cmd
}

func newBatchStatusCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <provider> <job-id>",
		Short: "Show the state of a batch job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, _, err := cc.newRouter(cmd.Context())
			if err != nil {
				return err
			}
			status, err := rt.CheckBatch(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if cc.jsonOutput {
				return writeJSON(cmd, status)
			}

			view := newTableView("Field", "Value")
			view.add("Job", status.JobID)
			view.add("State", string(status.State))
			view.add("Backend status", status.RawStatus)
			view.add("Requests", fmt.Sprintf("%d total, %d completed, %d failed", status.Counts.Total, status.Counts.Completed, status.Counts.Failed))
			if status.OutputFileID != "" {
				view.add("Output file", status.OutputFileID)
			}
			if status.ErrorFileID != "" {
				view.add("Error file", status.ErrorFileID)
			}
			if status.Error != nil {
				view.add("Error", strings.TrimSpace(status.Error.Code+" "+status.Error.Message))
			}
			return view.writeTo(cmd.OutOrStdout())
		},
	}
}

func newBatchResultsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "results <provider> <job-id>",
		Short: "Download the results of a completed batch job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, _, err := cc.newRouter(cmd.Context())
			if err != nil {
				return err
			}
			results, err := rt.RetrieveBatch(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if cc.jsonOutput {
				return writeJSON(cmd, translator.FromResults(args[1], results))
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results")
				return nil
			}

			view := newTableView("Correlation ID", "Structured", "Tokens", "Text").rightAlign("Tokens")
			for _, r := range results {
				view.add(r.CorrelationID, yesNo(r.Structured), strconv.Itoa(r.Usage.TotalTokens), truncate(strings.Join(strings.Fields(r.Text), " "), 60))
			}
			return view.writeTo(cmd.OutOrStdout())
		},
	}
}

func newBatchCancelCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <provider> <job-id>",
		Short: "Cancel a batch job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, _, err := cc.newRouter(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := rt.CancelBatch(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if cc.jsonOutput {
				return writeJSON(cmd, translator.BatchCancelled{JobID: args[1], Cancelled: ok})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for %s\n", args[1])
			return nil
		},
	}
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open batch input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readBatchItems parses one item per non-empty line.
func readBatchItems(r io.Reader, system string) ([]models.BatchItem, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var items []models.BatchItem
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item models.BatchItem
		if strings.HasPrefix(line, "{") {
			var req translator.BatchItemRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			item = models.BatchItem{ID: strings.TrimSpace(req.ID), Messages: translator.ToMessages(req.Messages)}
			if req.Options != nil {
				opts := req.Options.ToUnified()
				item.Options = &opts
			}
		} else {
			item = models.BatchItem{Messages: []models.Message{models.NewUserMessage(line)}}
		}
		if system != "" {
			item.Messages = append([]models.Message{models.NewSystemMessage(system)}, item.Messages...)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch input: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("batch input contains no items")
	}
	return items, nil
}
