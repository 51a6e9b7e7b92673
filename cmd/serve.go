package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"llmbridge/internal/server"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	var overridePort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cc.configPath == "" {
				return errors.New("serve command requires --config <path>")
			}
			if overridePort < 0 || overridePort > 65535 {
				return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
			}

			ctx := cmd.Context()
			rt, cfg, logger, err := cc.newRouter(ctx)
			if err != nil {
				return err
			}
			if overridePort != 0 {
				cfg.Server.Port = overridePort
			}

			srv, err := server.New(ctx, cfg, rt, logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&overridePort, "port", 0, "Override server port from configuration")
	return cmd
}
