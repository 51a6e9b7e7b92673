package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"llmbridge/internal/agent"
	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/translator"
)

func newCompleteCommand(cc *commandContext) *cobra.Command {
	var (
		modelKey    string
		agentName   string
		system      string
		example     string
		callerID    string
		temperature float64
		maxTokens   int
	)

	cmd := &cobra.Command{
		Use:   "complete [flags] <prompt...>",
		Short: "Run one completion against <provider>/<model> or a configured agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (modelKey == "") == (agentName == "") {
				return errors.New("exactly one of --model or --agent is required")
			}

			opts := models.RequestOptions{CallerID: callerID}
			if cmd.Flags().Changed("temperature") {
				opts.Temperature = &temperature
			}
			if cmd.Flags().Changed("max-tokens") {
				opts.MaxTokens = &maxTokens
			}
			if strings.TrimSpace(example) != "" {
				if !json.Valid([]byte(example)) {
					return fmt.Errorf("--example must be valid JSON")
				}
				opts.Example = json.RawMessage(example)
			}

			var messages []models.Message
			if system != "" {
				messages = append(messages, models.NewSystemMessage(system))
			}
			messages = append(messages, models.NewUserMessage(strings.Join(args, " ")))

			ctx := cmd.Context()
			rt, cfg, _, err := cc.newRouter(ctx)
			if err != nil {
				return err
			}

			var res *models.CompletionResult
			if agentName != "" {
				ac, ok := findAgent(cfg, agentName)
				if !ok {
					return fmt.Errorf("agent %q is not configured", agentName)
				}
				a, err := agent.FromRegistry(ctx, rt.Registry(), ac)
				if err != nil {
					return err
				}
				res, err = a.Complete(ctx, messages, opts)
				if err != nil {
					return err
				}
			} else {
				res, _, err = rt.Complete(ctx, modelKey, messages, opts)
				if err != nil {
					return err
				}
			}

			if cc.jsonOutput {
				return writeJSON(cmd, translator.FromResult(time.Now().Unix(), res))
			}
			return printResult(cmd, res)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&modelKey, "model", "m", "", "Model key, e.g. openai/gpt-4o-mini")
	flags.StringVarP(&agentName, "agent", "a", "", "Name of a configured agent")
	flags.StringVarP(&system, "system", "s", "", "System prompt")
	flags.StringVarP(&example, "example", "e", "", "JSON example value requesting structured output")
	flags.StringVar(&callerID, "caller-id", "", "Caller identifier forwarded to the backend")
	flags.Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens to generate")

	return cmd
}

func findAgent(cfg config.Config, name string) (config.AgentConfig, bool) {
	for _, ac := range cfg.Agents {
		if ac.Name == name {
			return ac, true
		}
	}
	return config.AgentConfig{}, false
}

func printResult(cmd *cobra.Command, res *models.CompletionResult) error {
	out := cmd.OutOrStdout()
	if res.Structured {
		data, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintln(out, res.Text)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s/%s tokens: prompt=%d completion=%d total=%d\n",
		res.Provider, res.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens)
	return nil
}
