package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

var execFlags struct {
	read    bool
	legacy  bool
	server  string
	timeout time.Duration
}

var execCmd = &cobra.Command{
	Use:   "exec STATEMENT...",
	Short: "Run one statement with automatic retry",
	Long: `Runs one statement (SQL for postgres, a command for redis) through the retry
layer. Writes are the default; --read selects the read policy.

--legacy sends the write to a single member: --server, or the resolved
primary when --server is empty. After a failure the next attempt resolves
the primary again.

Examples:
  clusterha exec --read "SELECT count(*) FROM orders"
  clusterha exec "UPDATE accounts SET frozen = true WHERE id = 7"
  clusterha exec --backend redis --dsn redis://cache:6379 SET greeting hello
  clusterha exec --legacy --server db-2:5432 "INSERT INTO audit (note) VALUES ('manual')"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVar(&execFlags.read, "read", false, "Use the read retry policy")
	execCmd.Flags().BoolVar(&execFlags.legacy, "legacy", false, "Write to a single member, re-resolving the primary after failures")
	execCmd.Flags().StringVar(&execFlags.server, "server", "", "Member address (host:port) for --legacy")
	execCmd.Flags().DurationVar(&execFlags.timeout, "timeout", 0, "Overall timeout including retries (0 = none)")
}

func resetExecFlags() {
	execFlags.read = false
	execFlags.legacy = false
	execFlags.server = ""
	execFlags.timeout = 0
}

func runExec(cmd *cobra.Command, args []string) error {
	if execFlags.read && execFlags.legacy {
		return fmt.Errorf("--read and --legacy are mutually exclusive: %w", clusterha.ErrInvalidConfig)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := commandContext(cmd)
	if execFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, execFlags.timeout)
		defer cancel()
	}

	var out string
	switch {
	case execFlags.read:
		out, err = retry.ReadValue(ctx, s.executor, func(ctx context.Context) (string, error) {
			return s.target.run(ctx, args, true)
		})
	case execFlags.legacy:
		err = s.executor.LegacyWrite(ctx, clusterha.ServerRef{Addr: execFlags.server}, nil,
			func(ctx context.Context, server clusterha.ServerRef) error {
				var runErr error
				out, runErr = s.target.runOn(ctx, server, args)
				return runErr
			})
	default:
		out, err = retry.WriteValue(ctx, s.executor, nil, func(ctx context.Context) (string, error) {
			return s.target.run(ctx, args, false)
		})
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
