package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/altiuslab/benchtools/profiling"
	"github.com/altiuslab/benchtools/recording"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [database file]",
	Short: "Summarize the sessions recorded in a SQLite trace database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := inspectDatabase(args[0])
		if err != nil {
			log.Fatalf("Error inspecting database: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectDatabase(path string) error {
	reader, err := recording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx := context.Background()

	reader.MapTable(profiling.SessionIndexTable, profiling.SessionTableEntry{})

	sessions, _, err := reader.Query(ctx, profiling.SessionIndexTable,
		recording.QueryParams{OrderBy: "SessionStart"})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SESSION\tTASKS\tTOTAL RUNTIME\tSTART\tEND")

	for _, s := range sessions {
		session := s.(*profiling.SessionTableEntry)

		count, runtime, err := summarizeSession(ctx, reader, session.TableName)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			session.TableName,
			count,
			runtime,
			session.SessionStart,
			session.SessionEnd,
		)
	}

	return nil
}

func summarizeSession(
	ctx context.Context,
	reader recording.Reader,
	tableName string,
) (count int, runtime int64, err error) {
	reader.MapTable(tableName, profiling.TaskTableEntry{})

	tasks, totalCount, err := reader.Query(ctx, tableName,
		recording.QueryParams{})
	if err != nil {
		return 0, 0, err
	}

	for _, t := range tasks {
		runtime += t.(*profiling.TaskTableEntry).Runtime
	}

	return totalCount, runtime, nil
}
