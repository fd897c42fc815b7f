package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/altiuslab/benchtools/profiling"
)

var reportCmd = &cobra.Command{
	Use:   "report [trace.json]",
	Short: "Print a per-type runtime summary of an exported trace document.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := reportDocument(args[0])
		if err != nil {
			log.Fatalf("Error reading trace: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

type typeSummary struct {
	count   int
	runtime profiling.TimeNanos
}

func reportDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc := profiling.Document{}
	err = json.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	summaries := map[string]*typeSummary{}
	order := []string{}

	for _, entry := range doc.Details {
		s, ok := summaries[entry.Type]
		if !ok {
			s = &typeSummary{}
			summaries[entry.Type] = s
			order = append(order, entry.Type)
		}

		s.count++
		s.runtime += entry.Runtime
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TYPE\tCOUNT\tTOTAL RUNTIME\tAVERAGE RUNTIME")

	for _, t := range order {
		s := summaries[t]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
			t, s.count, s.runtime,
			s.runtime/profiling.TimeNanos(s.count))
	}

	return nil
}
