package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"crazypanel/internal/services"
	"crazypanel/internal/stage"
	"crazypanel/internal/workflow"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV and print its server reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			file, err := readArtifact(cmd, args[0])
			if err != nil {
				return err
			}
			coord.Upload().Select(file)
			snap, err := coord.Submit(cmd.Context(), stage.KindUpload)
			if err != nil {
				return err
			}
			return reportSnapshots(cmd, ctx, snap)
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var csvPath string
	var account string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an uploaded CSV immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := ctx.coordinator(cmd, workflow.WithReference(strings.TrimSpace(csvPath)))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("account") {
				coord.Run().SetAccount(account)
			}
			snap, err := coord.Submit(cmd.Context(), stage.KindRun)
			if err != nil {
				return err
			}
			return reportSnapshots(cmd, ctx, snap)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv-path", "", "Server reference returned by upload")
	cmd.Flags().StringVarP(&account, "account", "a", "", "Account name (defaults to accounts.default)")
	return cmd
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var csvPath string
	var account string
	var when string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a one-time run of an uploaded CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := ctx.coordinator(cmd, workflow.WithReference(strings.TrimSpace(csvPath)))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("account") {
				coord.Schedule().SetAccount(account)
			}
			coord.Schedule().SetWhen(when)
			snap, err := coord.Submit(cmd.Context(), stage.KindSchedule)
			if err != nil {
				return err
			}
			return reportSnapshots(cmd, ctx, snap)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv-path", "", "Server reference returned by upload")
	cmd.Flags().StringVarP(&account, "account", "a", "", "Account name (defaults to accounts.default)")
	cmd.Flags().StringVar(&when, "at", "", "Local date-time, e.g. 2024-06-01T09:00")
	return cmd
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var account string
	var when string

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Upload a CSV, then run it now or schedule it with --at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			file, err := readArtifact(cmd, args[0])
			if err != nil {
				return err
			}
			coord.Upload().Select(file)
			uploaded, err := coord.Submit(cmd.Context(), stage.KindUpload)
			if err != nil {
				return err
			}
			if uploaded.Outcome != stage.Succeeded {
				return reportSnapshots(cmd, ctx, uploaded)
			}

			next, err := submitFollowUp(cmd.Context(), cmd, coord, account, when)
			if err != nil {
				return err
			}
			return reportSnapshots(cmd, ctx, uploaded, next)
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account name (defaults to accounts.default)")
	cmd.Flags().StringVar(&when, "at", "", "Schedule for this local date-time instead of running now")
	return cmd
}

func submitFollowUp(ctx context.Context, cmd *cobra.Command, coord *workflow.Coordinator, account, when string) (stage.Snapshot, error) {
	accountSet := cmd.Flags().Changed("account")
	if strings.TrimSpace(when) == "" {
		if accountSet {
			coord.Run().SetAccount(account)
		}
		return coord.Submit(ctx, stage.KindRun)
	}
	if accountSet {
		coord.Schedule().SetAccount(account)
	}
	coord.Schedule().SetWhen(when)
	return coord.Submit(ctx, stage.KindSchedule)
}

func readArtifact(cmd *cobra.Command, path string) (*stage.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", "read csv", path, err)
	}
	name := filepath.Base(path)
	if !stage.AcceptsName(name) {
		out := cmd.ErrOrStderr()
		fmt.Fprintln(out, renderStatusLine("File", statusWarn, name+" does not look like a .csv file", shouldColorize(out)))
	}
	return &stage.File{Name: name, Content: content}, nil
}

// reportSnapshots prints each settled stage and converts the last
// unsuccessful outcome into the process exit status.
func reportSnapshots(cmd *cobra.Command, ctx *commandContext, snaps ...stage.Snapshot) error {
	if ctx.jsonOutput() {
		var payload any = snaps
		if len(snaps) == 1 {
			payload = snaps[0]
		}
		if err := writeJSON(cmd, payload); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		for _, snap := range snaps {
			fmt.Fprintln(out, renderStatusLine(stageLabel(snap.Kind), outcomeStatus(snap.Outcome), snap.Message, colorize))
			if snap.Outcome == stage.Succeeded {
				if details := snapshotDetails(snap); details != "" {
					fmt.Fprintln(out, details)
				}
			}
		}
	}

	for _, snap := range snaps {
		switch snap.Outcome {
		case stage.Rejected:
			return &reportedError{code: 2, msg: snap.Message}
		case stage.Failed:
			return &reportedError{code: 1, msg: snap.Message}
		}
	}
	return nil
}

func snapshotDetails(snap stage.Snapshot) string {
	switch snap.Kind {
	case stage.KindUpload:
		return renderKeyValues([][2]string{
			{"File", snap.FileName},
			{"Size", humanize.Bytes(uint64(max(snap.SizeBytes, 0)))},
			{"CSV path", snap.Reference},
		})
	case stage.KindRun:
		return renderKeyValues([][2]string{
			{"Account", snap.Account},
			{"CSV path", snap.Reference},
			{"Queued", yesNo(snap.Queued)},
		})
	case stage.KindSchedule:
		return renderKeyValues([][2]string{
			{"Account", snap.Account},
			{"CSV path", snap.Reference},
			{"Job ID", snap.JobID},
			{"Run at", snap.RunAt},
		})
	default:
		return ""
	}
}
