package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	casfa "github.com/shazhou-ww/casfa-sub008"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two tree snapshots",
	Long:  "Compute file-granularity differences between two tree roots, with rename detection.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().Int("max-entries", 0, "stop after this many entries (0 = unbounded)")
	diffCmd.Flags().Int("max-depth", 0, "collapse subtrees below this depth (0 = unbounded)")
	diffCmd.Flags().Bool("stat", false, "print only the summary")
	diffCmd.Flags().Bool("json", false, "print the full result as JSON")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	oldKey, err := resolveKey(s, args[0])
	if err != nil {
		return err
	}
	newKey, err := resolveKey(s, args[1])
	if err != nil {
		return err
	}

	maxEntries, _ := cmd.Flags().GetInt("max-entries")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")

	res, err := casfa.Diff(context.Background(), s, oldKey, newKey,
		casfa.WithMaxEntries(maxEntries),
		casfa.WithMaxDepth(maxDepth),
	)
	if err != nil {
		return fmt.Errorf("diff failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if statOnly, _ := cmd.Flags().GetBool("stat"); !statOnly {
		for _, e := range res.Entries {
			printEntry(e)
		}
	}

	fmt.Printf("%d added, %d removed, %d modified, %d moved\n",
		res.Stats.Added, res.Stats.Removed, res.Stats.Modified, res.Stats.Moved)
	if res.Truncated {
		fmt.Fprintln(os.Stderr, "(truncated: entry budget reached)")
	}
	return nil
}

func printEntry(e casfa.Entry) {
	switch e.Kind {
	case casfa.EntryRemoved:
		fmt.Printf("D %s\n", e.Path)
	case casfa.EntryAdded:
		fmt.Printf("A %s\n", e.Path)
	case casfa.EntryModified:
		if e.TypeChange != casfa.TypeChangeNone {
			fmt.Printf("M %s (%s)\n", e.Path, e.TypeChange)
		} else {
			fmt.Printf("M %s\n", e.Path)
		}
	case casfa.EntryMoved:
		fmt.Printf("R %s -> %s\n", strings.Join(e.FromPaths, ","), strings.Join(e.ToPaths, ","))
	}
}
