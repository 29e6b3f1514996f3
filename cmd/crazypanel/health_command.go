package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type healthOutput struct {
	Online bool   `json:"online"`
	APIURL string `json:"api_url"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the Crazy Poster API once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			coord, _, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			online := coord.Mount(cmd.Context())

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, healthOutput{Online: online, APIURL: cfg.API.BaseURL}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if online {
					fmt.Fprintln(out, renderStatusLine("API", statusOK, "API Online  "+cfg.API.BaseURL, shouldColorize(out)))
				} else {
					fmt.Fprintln(out, renderStatusLine("API", statusError, "API Offline  "+cfg.API.BaseURL, shouldColorize(out)))
				}
			}
			if !online {
				return &reportedError{code: 1, msg: "API not reachable"}
			}
			return nil
		},
	}
}
