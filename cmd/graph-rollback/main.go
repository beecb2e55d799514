// graph-rollback：路由图快照的查看、回滚与保留窗口
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"campus-nav/internal/logger"
	"campus-nav/internal/migrate"
	"campus-nav/internal/store"
	"campus-nav/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "graph-rollback",
		Short:        "Re-activate a previously published graph snapshot",
		SilenceUsage: true,
		RunE:         runRollback,
	}
	f := cmd.Flags()
	f.Int64("to", 0, "Activate this snapshot id instead of the previous one")
	f.Bool("list", false, "List recent snapshots and exit")
	f.Int("keep", 0, "After rolling back, delete inactive snapshots beyond the newest N")
	return cmd
}

func openStore() (*store.Store, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	if err := migrate.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.AttachDB(db), nil
}

func runRollback(cmd *cobra.Command, _ []string) error {
	l := logger.Setup()
	to, _ := cmd.Flags().GetInt64("to")
	list, _ := cmd.Flags().GetBool("list")
	keep, _ := cmd.Flags().GetInt("keep")
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		l.Error("db_open_error", "err", err)
		return err
	}
	defer st.Close()

	if list {
		snaps, err := st.List(ctx, 20)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTAG\tBUILT\tNODES\tEDGES\tROOMS\tACTIVE")
		for _, s := range snaps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%t\n", s.ID, s.SourceTag, s.BuiltAt.UTC().Format(time.RFC3339), s.NodeCount, s.EdgeCount, s.RoomCount, s.Active)
		}
		return w.Flush()
	}

	if to > 0 {
		if err := st.Activate(ctx, to); err != nil {
			l.Error("graph_activate_error", "id", to, "err", err)
			return err
		}
		l.Info("graph_activate_done", "id", to)
	} else {
		prev, err := st.Rollback(ctx)
		if err != nil {
			l.Error("graph_rollback_error", "err", err)
			return err
		}
		l.Info("graph_rollback_done", "id", prev.ID, "tag", prev.SourceTag)
	}
	if keep > 0 {
		n, err := st.Prune(ctx, keep)
		if err != nil {
			return err
		}
		l.Info("graph_prune_done", "keep", keep, "deleted", n)
	}
	return nil
}
