package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opslynx/patchlynx/internal/export"
	"github.com/opslynx/patchlynx/internal/storage"
	"github.com/opslynx/patchlynx/pkg/utils"
)

func NewOutputCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "output",
		Short: "Manage stored compliance runs",
		Long: `Manage the local run repository: list stored runs, re-export a past
run, clean up expired runs and show storage statistics.`,
	}
	cmd.AddCommand(newOutputListCommand())
	cmd.AddCommand(newOutputViewCommand())
	cmd.AddCommand(newOutputExportCommand())
	cmd.AddCommand(newOutputCleanupCommand())
	cmd.AddCommand(newOutputStatsCommand())

	return cmd
}

func newOutputListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		RunE:  runOutputList,
	}
}

func newOutputViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view <run-id>",
		Short: "Render a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runOutputView,
	}
}

func newOutputExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Re-export a stored run",
		Long:  `Re-export a stored run to files without contacting the management server.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runOutputExport,
	}
	cmd.Flags().StringP("format", "f", "csv", "Export format (csv, xlsx, console)")
	_ = viper.BindPFlag("output.format", cmd.Flags().Lookup("format"))
	return cmd
}

func newOutputCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove runs older than the retention period",
		RunE:  runOutputCleanup,
	}
}

func newOutputStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show run repository statistics",
		RunE:  runOutputStats,
	}
}

func openRepository() (*storage.RunRepository, error) {
	return storage.NewRunRepository(
		viper.GetString("storage.path"),
		viper.GetBool("storage.compress"),
		viper.GetDuration("storage.retention"),
		logrus.StandardLogger(),
	)
}

func runOutputList(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	runs, err := repo.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		logrus.Info("No stored runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSERVER\tSTARTED\tTARGETS\tRECORDS\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID, r.Server, r.StartTime.Format("2006-01-02 15:04"),
			r.Targets, r.Records, r.Skipped)
	}
	return w.Flush()
}

func runOutputView(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	run, err := repo.Load(args[0])
	if err != nil {
		return err
	}
	sink := &export.ConsoleSink{Out: os.Stdout}
	_, err = sink.Export(context.Background(), run)
	return err
}

func runOutputExport(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	run, err := repo.Load(args[0])
	if err != nil {
		return err
	}

	sink, err := export.New(viper.GetString("output.format"), export.Config{
		OutputDir: viper.GetString("reporting.output_dir"),
		Prefix:    viper.GetString("reporting.prefix"),
	}, logrus.StandardLogger())
	if err != nil {
		return err
	}

	paths, err := sink.Export(context.Background(), run)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logrus.Infof("Wrote %s", p)
	}
	return nil
}

func runOutputCleanup(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	removed, err := repo.Cleanup()
	if err != nil {
		return err
	}
	logrus.Infof("Removed %d expired run(s)", removed)
	return nil
}

func runOutputStats(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	stats, err := repo.Stats()
	if err != nil {
		return err
	}

	fmt.Println("Run repository statistics:")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Base Directory:\t%v\n", stats["base_dir"])
	fmt.Fprintf(w, "  Stored Runs:\t%v\n", stats["total_runs"])
	if size, ok := stats["total_size_bytes"].(int64); ok {
		fmt.Fprintf(w, "  Total Size:\t%s\n", utils.HumanizeBytes(size))
	}
	fmt.Fprintf(w, "  Compression:\t%v\n", stats["compression"])
	fmt.Fprintf(w, "  Retention:\t%v\n", stats["retention"])
	return w.Flush()
}
