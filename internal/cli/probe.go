package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity and show the current primary",
	Long: `Connects to the cluster through the retry layer, runs a liveness round trip
and resolves the member currently accepting writes.

Examples:
  clusterha probe --backend postgres --dsn "postgres://app@db-1,db-2/app?target_session_attrs=read-write"
  clusterha probe --backend redis --dsn redis://cache:6379 --topology sharded`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := commandContext(cmd)
	if err := s.executor.Read(ctx, s.target.ping); err != nil {
		return err
	}

	primary, err := retry.ReadValue(ctx, s.executor, func(ctx context.Context) (clusterha.ServerRef, error) {
		return s.target.NextPrimary(ctx)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend:   %s\n", s.settings.Backend)
	fmt.Fprintf(out, "sharded:   %t\n", s.target.IsSharded())
	fmt.Fprintf(out, "connected: %t\n", s.target.IsConnected())
	fmt.Fprintf(out, "primary:   %s\n", primary)
	return nil
}
