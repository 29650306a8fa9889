// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/pidfile"
	"github.com/macq/tomtom-api/pkg/queue"
	"github.com/macq/tomtom-api/pkg/util/log"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon [command]",
	Short: "Control the queue daemon",
}

var (
	daemonDryRun bool

	daemonRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE:  runDaemon,
	}

	daemonStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE:  startDaemon,
	}

	daemonStopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE:  stopDaemon,
	}

	daemonStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE:  daemonStatus,
	}
)

func runDaemon(cmd *cobra.Command, args []string) error {
	// Mirror the daemon output to its own log file under the home folder.
	fileLogger, err := log.BuildFileLogger(cfg.LogLevel, cfg.DaemonLogFile())
	if err != nil {
		return fmt.Errorf("opening the daemon log: %w", err)
	}
	if err := log.RegisterAdditionalLogger("daemon-file", fileLogger); err != nil {
		return err
	}
	defer log.UnregisterAdditionalLogger("daemon-file") //nolint:errcheck

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	client, err := newClient(daemonDryRun)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Infof("Caught signal %q, stopping", sig)
		cancel()
	}()

	daemon := queue.NewDaemon(store, client, cfg.QueueLoopDuration, cfg.PidFile())
	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startDaemon re-executes the current binary as "daemon run", detached from
// the terminal. The child owns the pid file.
func startDaemon(cmd *cobra.Command, args []string) error {
	if pidfile.IsProcessAlive(cfg.PidFile()) {
		pid, _ := pidfile.ReadPID(cfg.PidFile())
		return fmt.Errorf("the daemon is already running with pid %d", pid)
	}

	self, err := os.Executable()
	if err != nil {
		return err
	}

	childArgs := []string{"daemon", "run"}
	if daemonDryRun {
		childArgs = append(childArgs, "--dry-run")
	}
	child := exec.Command(self, childArgs...)
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("starting the daemon: %w", err)
	}
	if err := child.Process.Release(); err != nil {
		return err
	}

	// The child writes the pid file once it owns the queue; give it a
	// moment before reporting.
	for i := 0; i < 20; i++ {
		if pidfile.IsProcessAlive(cfg.PidFile()) {
			pid, _ := pidfile.ReadPID(cfg.PidFile())
			fmt.Printf("Daemon started with pid %d, logging to %s\n", pid, cfg.DaemonLogFile())
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("the daemon did not come up; check %s", cfg.DaemonLogFile())
}

func stopDaemon(cmd *cobra.Command, args []string) error {
	pid, err := pidfile.ReadPID(cfg.PidFile())
	if err != nil {
		return fmt.Errorf("the daemon does not seem to be running (no usable pid file at %s)", cfg.PidFile())
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// The process is gone, only the pid file is left.
		pidfile.Remove(cfg.PidFile()) //nolint:errcheck
		return fmt.Errorf("no process with pid %d, removed the stale pid file", pid)
	}
	if err := proc.Terminate(); err != nil {
		return fmt.Errorf("stopping the daemon (pid %d): %w", pid, err)
	}

	for i := 0; i < 50; i++ {
		if !pidfile.IsProcessAlive(cfg.PidFile()) {
			fmt.Printf("Daemon with pid %d stopped\n", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("the daemon with pid %d did not stop in time", pid)
}

func daemonStatus(cmd *cobra.Command, args []string) error {
	if pidfile.IsProcessAlive(cfg.PidFile()) {
		pid, _ := pidfile.ReadPID(cfg.PidFile())
		fmt.Printf("The daemon is running with pid %d\n", pid)
		return nil
	}
	fmt.Println("The daemon is not running")
	return nil
}

func init() {
	daemonRunCmd.Flags().BoolVar(&daemonDryRun, "dry-run", false, "use a dummy client, nothing is sent to the remote service")
	daemonStartCmd.Flags().BoolVar(&daemonDryRun, "dry-run", false, "use a dummy client, nothing is sent to the remote service")

	daemonCmd.AddCommand(daemonRunCmd, daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	TomtomCmd.AddCommand(daemonCmd)
}
