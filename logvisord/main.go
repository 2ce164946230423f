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

// Command logvisord supervises the processes described by a directory of
// manifests, and serves their status and output over HTTP.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutrilab/logvisor"
	"github.com/nutrilab/logvisor/internal/logging"
	"github.com/nutrilab/logvisor/mqtt"
	"github.com/nutrilab/logvisor/rest"
)

var (
	flagConfig   string
	flagListen   string
	flagDir      string
	flagName     string
	flagEnable   bool
	flagLogLevel string
)

func main() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().StringVarP(&flagListen, "addr", "a", "", "listen address")
	rootCmd.Flags().StringVarP(&flagDir, "dir", "d", "", "directory holding the services/ manifests")
	rootCmd.Flags().StringVarP(&flagName, "name", "n", "", "supervisor name")
	rootCmd.Flags().BoolVarP(&flagEnable, "enable", "e", false, "start every process, not only autoStart ones")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(hashCmd)
	rootCmd.SilenceErrors = true

	if e := rootCmd.Execute(); e != nil {
		fmt.Fprintf(os.Stderr, "logvisord: %v\n", e)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "logvisord",
	Short:        "Supervise processes and stream their logs",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Read a password from stdin and print its bcrypt hash for auth.hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, e := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if e != nil && line == "" {
			return fmt.Errorf("reading password: %w", e)
		}
		hash, e := bcrypt.GenerateFromPassword([]byte(strings.TrimRight(line, "\r\n")), bcrypt.DefaultCost)
		if e != nil {
			return e
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

// applyFlags lets flags given on the command line win over the file and
// the environment.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Listen = flagListen
	}
	if f.Changed("dir") {
		cfg.Directory = flagDir
	}
	if f.Changed("name") {
		cfg.Name = flagName
	}
	if f.Changed("enable") {
		cfg.Enable = flagEnable
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
}

// debugSink copies relayed output into the diagnostic log.
func debugSink(logger *slog.Logger) logvisor.Sink {
	return logvisor.SinkFunc(func(label string, lines []logvisor.LogLine) {
		if !logger.Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		for _, l := range lines {
			logger.Debug("output", "label", label, "severity", l.Severity.String(), "line", l.Raw)
		}
	})
}

func loadSupervisor(cfg *Config, logger *slog.Logger) (*logvisor.Supervisor, []logvisor.ProcessManifest, error) {
	svcDir := filepath.Join(cfg.Directory, "services")
	if fi, e := os.Stat(svcDir); e != nil {
		return nil, nil, fmt.Errorf("services directory: %w", e)
	} else if !fi.IsDir() {
		return nil, nil, fmt.Errorf("services directory: %s is not a directory", svcDir)
	}
	ms, errs := logvisor.LoadManifests(svcDir)
	for _, e := range errs {
		logger.Warn("skipping manifest", "error", e)
	}
	sup, e := logvisor.NewSupervisorFromManifests(cfg.Name, ms)
	if e != nil {
		return nil, nil, e
	}
	sup.SetLogger(logger)
	return sup, ms, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, e := loadConfig(flagConfig)
	if e != nil {
		return e
	}
	applyFlags(cmd, cfg)
	if e := cfg.Validate(); e != nil {
		return fmt.Errorf("validating config: %w", e)
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, "logvisord")

	sup, ms, e := loadSupervisor(cfg, logger)
	if e != nil {
		return e
	}
	logger.Info("loaded processes", "count", len(ms), "labels", sup.Labels())

	hist := logvisor.NewHistory(cfg.History)
	sinks := logvisor.NewMultiSink(hist, debugSink(logger))
	if cfg.MQTT.Broker != "" {
		msink, e := mqtt.Connect(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if e != nil {
			return e
		}
		defer msink.Close()
		sinks.AddSink(msink)
	}

	handler := rest.NewHandler(sup, hist, sinks)
	handler.SetLogger(logger.With("component", "rest"))
	if cfg.Auth.User != "" {
		handler.SetAuth(cfg.Auth.User, []byte(cfg.Auth.Hash))
	}

	ln, e := net.Listen("tcp", cfg.Listen)
	if e != nil {
		return e
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	pollCtx, pollCancel := context.WithCancel(context.Background())
	pollDone := make(chan struct{})
	go func() {
		logvisor.NewPoller(sup, sinks, time.Duration(cfg.Poll)).Run(pollCtx)
		close(pollDone)
	}()

	if cfg.Enable {
		sup.StartAll()
	} else {
		for _, m := range ms {
			if m.AutoStart {
				if e := sup.Start(m.Label); e != nil {
					logger.Warn("start failed", "label", m.Label, "error", e)
				}
			}
		}
	}

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Serve(ln)
	}()
	logger.Info("listening", "addr", ln.Addr().String())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	select {
	case <-ctx.Done():
		e = nil
	case e = <-srvErr:
	}

	// Children first, so that their last words reach the history and
	// any followers before we stop listening.
	logger.Info("shutting down")
	sup.ShutdownAll(time.Duration(cfg.StopTimeout))
	pollCancel()
	<-pollDone
	handler.Close()

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)

	if errors.Is(e, http.ErrServerClosed) {
		e = nil
	}
	return e
}
