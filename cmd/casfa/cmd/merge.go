package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	casfa "github.com/shazhou-ww/casfa-sub008"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <base> <ours> <theirs>",
	Short: "Three-way merge of tree snapshots",
	Long: "Compute a merge plan for two snapshots that diverged from a common base. " +
		"Conflicting paths resolve by last-writer-wins on the side timestamps; ours wins ties.",
	Args: cobra.ExactArgs(3),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().Int64("ours-ts", 0, "timestamp of the ours snapshot")
	mergeCmd.Flags().Int64("theirs-ts", 0, "timestamp of the theirs snapshot")
	mergeCmd.Flags().Int("max-entries", 0, "per-diff entry budget (0 = unbounded)")
	mergeCmd.Flags().Int("max-depth", 0, "per-diff depth bound (0 = unbounded)")
	mergeCmd.Flags().Bool("json", false, "print the full plan as JSON")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	keys := make([]string, 3)
	for i, arg := range args {
		if keys[i], err = resolveKey(s, arg); err != nil {
			return err
		}
	}

	oursTS, _ := cmd.Flags().GetInt64("ours-ts")
	theirsTS, _ := cmd.Flags().GetInt64("theirs-ts")
	maxEntries, _ := cmd.Flags().GetInt("max-entries")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")

	plan, err := casfa.Merge(context.Background(), s, keys[0], keys[1], keys[2],
		casfa.WithTimestamps(oursTS, theirsTS),
		casfa.WithMergeDiffOptions(
			casfa.WithMaxEntries(maxEntries),
			casfa.WithMaxDepth(maxDepth),
		),
	)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	for _, op := range plan.Operations {
		if op.NodeKey != "" {
			fmt.Printf("%s %s %s\n", op.Kind, op.Path, op.NodeKey)
		} else {
			fmt.Printf("%s %s\n", op.Kind, op.Path)
		}
	}
	for _, r := range plan.Resolutions {
		fmt.Fprintf(os.Stderr, "conflict %s at %s: %s wins\n", r.Conflict, r.Path, r.Winner)
	}
	return nil
}
