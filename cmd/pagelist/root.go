// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "pagelist",
		Short:         "pagelist - journaled, ordered page lists",
		Long:          "pagelist journals page changes, relays them to a coordinator and keeps every list's ordered index current.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Config file (default: $CONFIG_PATH or the first of the default paths)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newPageCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newJournalCmd(a))
	cmd.AddCommand(newDrainCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newProcessCmd(a))
	cmd.AddCommand(newResetCmd(a))
	cmd.AddCommand(newRequeueCmd(a))
	cmd.AddCommand(newQueueCmd(a))
	cmd.AddCommand(newShowCmd(a))
	return cmd
}
