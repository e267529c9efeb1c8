package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopTimeout  = 5 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the clipforged background process",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))

	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the clipforged daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if ctx.daemonClient(cmd.Context()) != nil {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			var launchArgs []string
			if ctx.configFlag != nil {
				if path := strings.TrimSpace(*ctx.configFlag); path != "" {
					launchArgs = append(launchArgs, "--config", path)
				}
			}

			proc := exec.Command(exe, launchArgs...)
			proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
			if err := proc.Start(); err != nil {
				return fmt.Errorf("launch %s: %w", exe, err)
			}
			if err := proc.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon process: %w", err)
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := waitForDaemon(cmd.Context(), ctx, true, daemonStartTimeout); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipforged daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if ctx.daemonClient(cmd.Context()) == nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}

			pid, err := readDaemonPID(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "Stopping daemon (pid %d)...\n", pid)
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				return fmt.Errorf("signal daemon (pid %d): %w", pid, err)
			}

			if err := waitForDaemon(cmd.Context(), ctx, false, daemonStopTimeout); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx)
		},
	}
}

func daemonExecutable() (string, error) {
	// Prefer a clipforged sitting next to this binary, fall back to PATH.
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "clipforged")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("clipforged")
	if err != nil {
		return "", errors.New("clipforged executable not found next to clipforge or on PATH")
	}
	return path, nil
}

func readDaemonPID(cfg *config.Config) (int, error) {
	path := filepath.Join(cfg.Paths.DataDir, "clipforged.pid")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pid file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s holds invalid pid %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

func waitForDaemon(ctx context.Context, cmdCtx *commandContext, wantRunning bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		running := cmdCtx.daemonClient(ctx) != nil
		if running == wantRunning {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	if wantRunning {
		return errors.New("daemon did not become reachable in time; check the daemon log")
	}
	return errors.New("daemon did not shut down in time")
}
