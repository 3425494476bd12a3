package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/impasto/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage stored paint jobs",
	Long: `Lists and cleans jobs stored under --data-dir by "paint --save" or the
server.`,
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored jobs",
	RunE:  runListRecords,
}

var cleanJobsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old stored jobs",
	Long: `Delete stored jobs based on a retention policy.
Keep the newest N jobs, delete jobs older than N days, or both.`,
	RunE: runCleanRecords,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(cleanJobsCmd)

	cleanJobsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N jobs (0 = keep all)")
	cleanJobsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete jobs older than N days (0 = no age limit)")
	cleanJobsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListRecords(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No stored jobs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tTIMESTAMP\tSIZE\tSHADER\tSTROKES\tMSE\tDISK")
	fmt.Fprintln(w, "------\t---------\t----\t------\t-------\t---\t----")

	for _, info := range infos {
		disk := "unknown"
		if size, err := getDirSize(filepath.Join(st.BaseDir(), "jobs", info.JobID)); err == nil {
			disk = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%d\t%.2f\t%s\n",
			shortID(info.JobID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Width, info.Height,
			info.Shader,
			info.Strokes,
			info.Cost,
			disk,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal jobs: %d\n", len(infos))
	return nil
}

func runCleanRecords(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectRecordsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No jobs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(info.JobID), info.SourcePath, info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean && !confirm(cmd.InOrStdin(), out, "\nProceed with deletion? [y/N]: ") {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := st.DeleteRecord(info.JobID); err != nil {
			slog.Error("Failed to delete job", "job_id", info.JobID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted job", "job_id", info.JobID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d job(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRecordsForDeletion returns the jobs older than olderThanDays plus
// every job beyond the newest keepLast, oldest first. Zero disables a rule.
func selectRecordsForDeletion(infos []store.RecordInfo, keepLast, olderThanDays int, now time.Time) []store.RecordInfo {
	sorted := make([]store.RecordInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	cutoff := now.AddDate(0, 0, -olderThanDays)
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.RecordInfo
	for i, info := range sorted {
		if i < excess || (olderThanDays > 0 && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
