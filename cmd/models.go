package cmd

import (
	"github.com/spf13/cobra"

	"llmbridge/internal/translator"
)

func newModelsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models of every configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, _, err := cc.newRouter(cmd.Context())
			if err != nil {
				return err
			}
			list, err := rt.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if cc.jsonOutput {
				return writeJSON(cmd, translator.FromDescriptors(list))
			}

			view := newTableView("Model", "Name", "Structured", "Batch")
			for _, m := range list {
				view.add(m.Key(), m.Name, yesNo(m.Capabilities.StructuredOutput), yesNo(m.Capabilities.BatchRequests))
			}
			return view.writeTo(cmd.OutOrStdout())
		},
	}
}
