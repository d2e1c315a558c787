package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/hostkeeper/pkg/client"
	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/status"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/tasks"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check SERVER_ID",
	Short: "Run one server check now",
	Long: `Run a single server check and print its outcome.

By default the check runs in this process against the local store, so the
daemon must not be holding it. With --remote the running daemon performs
the check instead. With --dry-run the host and the store are only read:
background tasks, proxy starts, network connections, status writes and
notifications are printed rather than performed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteAddr, _ := cmd.Flags().GetString("remote")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ctx := cmd.Context()

		if remoteAddr != "" {
			if dryRun {
				return fmt.Errorf("--dry-run cannot be combined with --remote")
			}
			return checkRemote(ctx, remoteAddr, args[0])
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("%w (is the daemon running? use --remote)", err)
		}
		defer store.Close()

		server, err := store.GetServer(args[0])
		if err != nil {
			return err
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		if dryRun {
			deps, plan := reconciler.DryRun(newDaemonDeps(store, broker, nil).checkerDeps)
			deps.Propagator = status.NewAggregator(deps.Store)
			out := runCheck(ctx, reconciler.NewServerChecker(deps), server)
			printTasks(plan.Tasks.Tasks())
			printActions(plan.Actions())
			return outcomeError(out)
		}

		pool := tasks.NewPool(tasks.PoolConfig{
			Workers:   cfg.TaskWorkers,
			QueueSize: cfg.TaskQueueSize,
			Timeout:   cfg.TaskTimeout,
		})
		d := newDaemonDeps(store, broker, pool)
		d.runner.Register(pool)
		pool.Start()
		defer pool.Stop()

		out := runCheck(ctx, d.checker, server)
		waitForTasks(pool, cfg.TaskTimeout)
		return outcomeError(out)
	},
}

func init() {
	checkCmd.Flags().Bool("dry-run", false, "Print tasks and changes instead of performing them")
	checkCmd.Flags().String("remote", "", "Ask the daemon at this API address to run the check")
}

func runCheck(ctx context.Context, checker *reconciler.ServerChecker, server *types.Server) reconciler.Outcome {
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	fmt.Printf("Checking server %s (%s)...\n", server.Name, server.ID)
	out := checker.Check(ctx, server)
	fmt.Printf("  Run ID:   %s\n", out.RunID)
	fmt.Printf("  Result:   %s\n", out.Result)
	if out.Message != "" {
		fmt.Printf("  Message:  %s\n", out.Message)
	}
	fmt.Printf("  Duration: %s\n", out.Duration.Round(time.Millisecond))
	return out
}

func outcomeError(out reconciler.Outcome) error {
	if out.Failed() {
		return fmt.Errorf("server check failed: %w", out.Err)
	}
	return nil
}

func checkRemote(ctx context.Context, addr, serverID string) error {
	c, err := client.NewClient(addr)
	if err != nil {
		return err
	}

	fmt.Printf("Checking server %s via %s...\n", serverID, addr)
	out, err := c.CheckServer(ctx, serverID)
	if err != nil {
		return err
	}
	fmt.Printf("  Run ID:   %s\n", out.RunID)
	fmt.Printf("  Result:   %s\n", out.Result)
	if out.Message != "" {
		fmt.Printf("  Message:  %s\n", out.Message)
	}
	fmt.Printf("  Duration: %dms\n", out.DurationMs)
	if out.Error != "" {
		return fmt.Errorf("server check failed: %s", out.Error)
	}
	return nil
}

func printTasks(submitted []tasks.Task) {
	if len(submitted) == 0 {
		fmt.Println("No background tasks submitted")
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK ID\tKIND\tSERVER")
	for _, t := range submitted {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Kind, t.ServerID)
	}
	w.Flush()
}

func printActions(actions []reconciler.Action) {
	if len(actions) == 0 {
		fmt.Println("No changes withheld")
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tSERVER\tDETAIL")
	for _, a := range actions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Kind, a.ServerID, a.Detail)
	}
	w.Flush()
}

// waitForTasks gives submitted tasks up to timeout to finish before exit
func waitForTasks(pool *tasks.Pool, timeout time.Duration) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	deadline := time.Now().Add(timeout)
	for pool.InFlight() > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if n := pool.InFlight(); n > 0 {
		fmt.Printf("%d background task(s) still running, abandoning\n", n)
	}
}
