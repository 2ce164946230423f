// Copyright 2026 The Logvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command logvisor is the client of logvisord.  With no subcommand it
// runs an interactive terminal user interface.
//
// The persistent flags are
//
//	-a <address>	- the daemon address, default http://127.0.0.1:8321
//	-u <user:pass>	- user name & password for basic auth
//	--log <file>	- write client diagnostics to a file
//
// Subcommands are
//
//	processes              - list process labels
//	status [<label> ...]   - one line status for the named processes (or all)
//	info <label>           - detailed process status
//	start <label>          - start the process
//	stop <label>           - stop the process
//	toggle <label>         - start or stop the process
//	log <label>            - print the retained log
//	follow <label>         - print the log as it is produced
//	ui                     - the terminal interface
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nutrilab/logvisor/internal/logging"
	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

var (
	flagAddr    = "http://127.0.0.1:8321"
	flagAuth    string
	flagLogFile string
	flagTimeout time.Duration
	flagSince   int64
)

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagAddr, "addr", "a", flagAddr, "logvisord address")
	pf.StringVarP(&flagAuth, "user", "u", "", "user:pass authentication")
	pf.StringVar(&flagLogFile, "log", "", "write diagnostics to this file")

	stopCmd.Flags().DurationVarP(&flagTimeout, "timeout", "t", 0, "grace period before the process is killed")
	followCmd.Flags().Int64Var(&flagSince, "since", 0, "replay records after this id first")

	rootCmd.AddCommand(processesCmd, statusCmd, infoCmd, startCmd,
		stopCmd, toggleCmd, logCmd, followCmd, uiCmd)
	rootCmd.SilenceErrors = true

	if e := rootCmd.Execute(); e != nil {
		fmt.Fprintf(os.Stderr, "logvisor: %v\n", e)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "logvisor",
	Short:        "Control logvisord and read process logs",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runUI,
}

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List process labels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, e := newClient()
		if e != nil {
			return e
		}
		labels, e := client.Processes()
		if e != nil {
			return e
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [label...]",
	Short: "Show a one line status per process",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, e := newClient()
		if e != nil {
			return e
		}
		if len(args) == 0 {
			if args, e = client.Processes(); e != nil {
				return e
			}
		}
		var items []*rest.ProcessInfo
		var errs []error
		for _, l := range args {
			p, e := client.GetProcess(l)
			if e != nil {
				errs = append(errs, fmt.Errorf("%s: %w", l, e))
				continue
			}
			items = append(items, p)
		}
		util.SortProcesses(items)
		now := time.Now()
		for _, p := range items {
			printStatus(cmd.OutOrStdout(), p, now)
		}
		return errors.Join(errs...)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <label>",
	Short: "Show detailed process status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, e := newClient()
		if e != nil {
			return e
		}
		p, e := client.GetProcess(args[0])
		if e != nil {
			return e
		}
		printInfo(cmd.OutOrStdout(), p)
		return nil
	},
}

func action(use, short string, fn func(*rest.Client, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <label>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			client, e := newClient()
			if e != nil {
				return e
			}
			return fn(client, args[0])
		},
	}
}

var startCmd = action("start", "Start a process", (*rest.Client).StartProcess)

var stopCmd = action("stop", "Stop a process", func(c *rest.Client, label string) error {
	return c.StopProcess(label, flagTimeout)
})

var toggleCmd = action("toggle", "Start a stopped process or stop a running one", (*rest.Client).ToggleProcess)

var logCmd = &cobra.Command{
	Use:   "log <label>",
	Short: "Print the retained log of a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, e := newClient()
		if e != nil {
			return e
		}
		info, e := client.GetLog(args[0], 0)
		if e != nil {
			return e
		}
		for _, r := range info.Records {
			printRecord(cmd.OutOrStdout(), r)
		}
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <label>",
	Short: "Print the log of a process as it is produced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, e := newClient()
		if e != nil {
			return e
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		w := cmd.OutOrStdout()
		e = client.Follow(ctx, args[0], flagSince, func(r rest.LogRecord) {
			printRecord(w, r)
		})
		if errors.Is(e, context.Canceled) {
			return nil
		}
		return e
	},
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Run the terminal user interface",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func runUI(_ *cobra.Command, _ []string) error {
	client, e := newClient()
	if e != nil {
		return e
	}
	logger, closer, e := uiLogger(flagLogFile)
	if e != nil {
		return e
	}
	defer closer.Close()
	return doUI(client, flagAddr, logger)
}

// parseAuth splits a user:pass pair.
func parseAuth(s string) (string, string, error) {
	user, pass, found := strings.Cut(s, ":")
	if !found || user == "" {
		return "", "", errors.New("bad user:pass supplied")
	}
	return user, pass, nil
}

func newClient() (*rest.Client, error) {
	client := rest.NewClient(nil, flagAddr)
	if flagAuth != "" {
		user, pass, e := parseAuth(flagAuth)
		if e != nil {
			return nil, e
		}
		client.SetAuth(user, pass)
	}
	return client, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// uiLogger picks where diagnostics go while the terminal is owned by the
// user interface.  Without a file they are discarded.
func uiLogger(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return logging.Discard(), nopCloser{}, nil
	}
	f, e := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if e != nil {
		return nil, nil, e
	}
	return logging.New(f, "debug", "text", "logvisor"), f, nil
}

func printStatus(w io.Writer, p *rest.ProcessInfo, now time.Time) {
	d := util.Since(p, now)
	// for printing second resolution is sufficient
	d -= d % time.Second
	fmt.Fprintf(w, "%-20s %-10s %10s %s\n", p.Label,
		util.Status(p), d.String(), util.Detail(p))
}

func printInfo(w io.Writer, p *rest.ProcessInfo) {
	fmt.Fprintf(w, "%13s %s\n", "Label:", p.Label)
	fmt.Fprintf(w, "%13s %s\n", "Description:", p.Description)
	fmt.Fprintf(w, "%13s %s\n", "Command:", strings.Join(p.Command, " "))
	fmt.Fprintf(w, "%13s %s\n", "Status:", util.Status(p))
	if p.Running {
		fmt.Fprintf(w, "%13s %d\n", "PID:", p.PID)
		fmt.Fprintf(w, "%13s %s\n", "Run:", p.RunID)
	}
	if !p.Started.IsZero() {
		fmt.Fprintf(w, "%13s %s\n", "Started:", p.Started.Format(time.RFC3339))
	}
	if !p.Exited.IsZero() {
		fmt.Fprintf(w, "%13s %s\n", "Exited:", p.Exited.Format(time.RFC3339))
	}
	if p.ExitReason != "" {
		fmt.Fprintf(w, "%13s %d\n", "Exit Code:", p.ExitCode)
		fmt.Fprintf(w, "%13s %s\n", "Detail:", p.ExitReason)
	}
}

func printRecord(w io.Writer, r rest.LogRecord) {
	fmt.Fprintf(w, "%s %s\n", r.Time.Format(time.StampMilli), r.Raw)
}
