/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
    if err := rootCmd().Execute(); err != nil {
        fmt.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }
}

type flags struct {
    configPath string
    logLevel   string
}

func rootCmd() *cobra.Command {
    f := &flags{}
    cmd := &cobra.Command{
        Use:           "issue-sync",
        Short:         "Export Jira issues to a spreadsheet and a Google Sheet",
        SilenceUsage:  true,
        SilenceErrors: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return runOnce(cmd.Context(), f)
        },
    }
    cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML config file")
    cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

    cmd.AddCommand(&cobra.Command{
        Use:   "run",
        Short: "Run one export and exit",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runOnce(cmd.Context(), f)
        },
    })
    cmd.AddCommand(&cobra.Command{
        Use:   "serve",
        Short: "Run exports on SYNC_CRON and serve the admin API",
        RunE: func(cmd *cobra.Command, args []string) error {
            return serve(cmd.Context(), f)
        },
    })
    cmd.AddCommand(&cobra.Command{
        Use:   "version",
        Short: "Print version information",
        Run: func(cmd *cobra.Command, args []string) {
            fmt.Fprintf(cmd.OutOrStdout(), "issue-sync %s\n", version)
        },
    })
    return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
    if parent == nil { parent = context.Background() }
    return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runOnce(parent context.Context, f *flags) error {
    ctx, stop := signalContext(parent)
    defer stop()
    a, err := newApp(ctx, f)
    if err != nil { return err }
    defer a.Close()
    _, err = a.svc.Run(ctx)
    return err
}
