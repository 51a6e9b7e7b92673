package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCommand(newCommandContext())
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "llmbridge",
		Short:         "One interface to OpenAI and Gemini, with structured output and batch jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cc.configPath, "config", "c", "", "Path to YAML configuration file (default: environment variables)")
	flags.StringVar(&cc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.BoolVar(&cc.jsonOutput, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newModelsCommand(cc))
	rootCmd.AddCommand(newCompleteCommand(cc))
	rootCmd.AddCommand(newBatchCommand(cc))

	return rootCmd
}
