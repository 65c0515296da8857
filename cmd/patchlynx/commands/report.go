package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opslynx/patchlynx/internal/compliance"
	"github.com/opslynx/patchlynx/internal/export"
	"github.com/opslynx/patchlynx/internal/storage"
	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a patch compliance scan and export the results",
		Long: `Resolve the selected ESXi hosts, trigger a remote compliance scan against
the matched baselines, wait for completion and export the compliance,
installed-patch and missing-patch record sets.`,
		RunE: runReport,
	}

	cmd.Flags().StringSliceP("hosts", "H", nil, "Host names to scan")
	cmd.Flags().StringSliceP("groups", "g", nil, "Host group names to scan")
	cmd.Flags().BoolP("all", "a", false, "Scan every host the server manages")
	cmd.Flags().StringSliceP("baselines", "b", models.DefaultBaselinePatterns, "Baseline name patterns (glob, case-insensitive)")
	cmd.Flags().StringP("format", "f", "csv", "Export format (csv, xlsx, console, memory)")
	cmd.Flags().StringP("output-dir", "o", "./reports", "Output directory for exported files")
	cmd.Flags().String("prefix", "patchlynx-", "Exported file name prefix")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "Scan status poll interval")
	cmd.Flags().Duration("poll-timeout", 30*time.Minute, "Give up waiting for the scan after this long")
	cmd.Flags().Bool("no-store", false, "Do not persist the run in the local run repository")

	_ = viper.BindPFlag("report.hosts", cmd.Flags().Lookup("hosts"))
	_ = viper.BindPFlag("report.groups", cmd.Flags().Lookup("groups"))
	_ = viper.BindPFlag("report.all", cmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("report.no_store", cmd.Flags().Lookup("no-store"))
	_ = viper.BindPFlag("scan.baseline_patterns", cmd.Flags().Lookup("baselines"))
	_ = viper.BindPFlag("reporting.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("reporting.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("reporting.prefix", cmd.Flags().Lookup("prefix"))
	_ = viper.BindPFlag("scan.poll_interval", cmd.Flags().Lookup("poll-interval"))
	_ = viper.BindPFlag("scan.poll_timeout", cmd.Flags().Lookup("poll-timeout"))

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	filter := compliance.Filter{
		Hosts:  viper.GetStringSlice("report.hosts"),
		Groups: viper.GetStringSlice("report.groups"),
		All:    viper.GetBool("report.all"),
	}
	if filter.IsZero() {
		return fmt.Errorf("no targets selected: use --hosts, --groups or --all")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	logger := logrus.StandardLogger()

	var metrics *utils.Metrics
	if viper.GetBool("metrics.enabled") {
		metrics = utils.NewMetrics(true)
		listen := viper.GetString("metrics.listen")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(listen, mux); err != nil {
				logger.Warnf("Metrics listener failed: %v", err)
			}
		}()
		logger.Infof("Metrics exposed on http://%s/metrics", listen)
	}

	session := vsphere.NewSession(connectionConfig(), logger)
	if err := session.Login(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer logoutCancel()
		if err := session.Logout(logoutCtx); err != nil {
			logger.Warnf("Logout failed: %v", err)
		}
	}()

	client := vsphere.NewClient(session, viper.GetInt("connection.rate_limit"), logger, metrics)
	pipeline := compliance.NewPipeline(client, compliance.Config{
		Server:           session.Server(),
		BaselinePatterns: viper.GetStringSlice("scan.baseline_patterns"),
		Poll: compliance.PollConfig{
			Interval: viper.GetDuration("scan.poll_interval"),
			Timeout:  viper.GetDuration("scan.poll_timeout"),
		},
	}, logger, metrics)

	run, err := pipeline.Run(ctx, filter)
	if err != nil {
		return fmt.Errorf("compliance run failed: %w", err)
	}

	if !viper.GetBool("report.no_store") {
		repo, err := storage.NewRunRepository(
			viper.GetString("storage.path"),
			viper.GetBool("storage.compress"),
			viper.GetDuration("storage.retention"),
			logger,
		)
		if err != nil {
			logger.Warnf("Run repository unavailable: %v", err)
		} else if err := repo.Store(run); err != nil {
			logger.Warnf("Could not persist run %s: %v", run.RunID, err)
		}
	}

	sink, err := export.New(viper.GetString("reporting.format"), export.Config{
		OutputDir: viper.GetString("reporting.output_dir"),
		Prefix:    viper.GetString("reporting.prefix"),
	}, logger)
	if err != nil {
		return err
	}
	paths, err := sink.Export(ctx, run)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	for _, p := range paths {
		logger.Infof("Wrote %s", p)
	}

	displayRunSummary(run)
	return nil
}

func connectionConfig() models.ConnectionConfig {
	return models.ConnectionConfig{
		Server:    viper.GetString("connection.server"),
		Username:  viper.GetString("connection.username"),
		Password:  viper.GetString("connection.password"),
		Token:     viper.GetString("connection.token"),
		Insecure:  viper.GetBool("connection.insecure"),
		Timeout:   viper.GetDuration("connection.timeout"),
		RateLimit: viper.GetInt("connection.rate_limit"),
	}
}

func displayRunSummary(run *models.RunResult) {
	duration := run.EndTime.Sub(run.StartTime).Round(time.Second)
	fmt.Printf(`
Run Summary:
═══════════════════════════════════════════════════════════════
Run ID:            %s
Server:            %s
Targets Resolved:  %d
Compliance Rows:   %d
Installed Patches: %d
Missing Patches:   %d
Skipped Hosts:     %d
Duration:          %v
═══════════════════════════════════════════════════════════════
`, run.RunID, run.Server, len(run.Targets),
		len(run.Compliance), len(run.Installed), len(run.Missing),
		len(run.Skipped), duration)

	if len(run.Skipped) > 0 {
		fmt.Println("Skipped hosts:")
		for _, sk := range run.Skipped {
			fmt.Printf("  • %s (%s): %s\n", sk.Target, sk.State, sk.Reason)
		}
		fmt.Println()
	}
}
