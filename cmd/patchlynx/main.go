package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opslynx/patchlynx/cmd/patchlynx/commands"
	"github.com/opslynx/patchlynx/pkg/utils"
)

var (
	version   = "1.0.0"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "patchlynx",
	Short:   "PatchLynx - ESXi Patch Compliance Reporting",
	Long:    "PatchLynx resolves managed ESXi hosts, drives remote compliance scans through the patch manager and exports the compliance, installed-patch and missing-patch record sets.",
	Version: version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := initLogging(); err != nil {
			return err
		}

		if err := ensureDirs(); err != nil {
			logrus.Warnf("Failed to ensure directories: %v", err)
		}

		if !viper.GetBool("quiet") {
			printBanner()
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.patchlynx/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet mode (no banner output)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
	rootCmd.PersistentFlags().StringP("server", "s", "", "management server URL (https://vcenter.example.com)")
	rootCmd.PersistentFlags().StringP("username", "u", "", "management server username")
	rootCmd.PersistentFlags().String("password", "", "management server password")
	rootCmd.PersistentFlags().String("token", "", "SSO bearer token (overrides username/password)")
	rootCmd.PersistentFlags().Bool("insecure", false, "skip TLS certificate verification")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("global.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("global.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("global.log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("connection.server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("connection.username", rootCmd.PersistentFlags().Lookup("username"))
	_ = viper.BindPFlag("connection.password", rootCmd.PersistentFlags().Lookup("password"))
	_ = viper.BindPFlag("connection.token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("connection.insecure", rootCmd.PersistentFlags().Lookup("insecure"))

	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewHostsCommand())
	rootCmd.AddCommand(commands.NewOutputCommand())
	rootCmd.AddCommand(commands.NewConfigureCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, buildDate))

	rootCmd.InitDefaultCompletionCmd()
	rootCmd.SetVersionTemplate(fmt.Sprintf("PatchLynx %s (commit %s, built %s)\n", version, commit, buildDate))
}

func initConfig() error {
	setDefaults()
	viper.SetEnvPrefix("PATCHLYNX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home dir: %w", err)
		}
		viper.AddConfigPath(filepath.Join(home, ".patchlynx"))
		viper.AddConfigPath("/etc/patchlynx/")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.Warnf("Failed reading config file: %v", err)
		}
	} else {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("global.log_level", "info")
	viper.SetDefault("global.log_format", "json")
	viper.SetDefault("global.data_dir", "./data")
	viper.SetDefault("quiet", false)
	viper.SetDefault("connection.timeout", "30s")
	viper.SetDefault("connection.rate_limit", 10)
	viper.SetDefault("scan.baseline_patterns", []string{"*Critical Host Patches*", "*Non-Critical Host Patches*"})
	viper.SetDefault("scan.poll_interval", "5s")
	viper.SetDefault("scan.poll_timeout", "30m")
	viper.SetDefault("reporting.format", "csv")
	viper.SetDefault("reporting.output_dir", "./reports")
	viper.SetDefault("reporting.prefix", "patchlynx-")
	viper.SetDefault("storage.path", "./data/runs")
	viper.SetDefault("storage.retention", "2160h")
	viper.SetDefault("storage.compress", false)
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:9180")
}

func initLogging() error {
	logConfig := utils.LogConfig{
		Level:         viper.GetString("global.log_level"),
		Format:        viper.GetString("global.log_format"),
		FileLocation:  viper.GetString("global.log_file"),
		EnableConsole: true,
	}

	logger, err := utils.NewLogger(logConfig, "patchlynx", version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize structured logger, falling back: %v\n", err)
		basic := logrus.New()
		basic.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetOutput(basic.Out)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(basic.Formatter)
		return nil
	}

	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.Level)
	logrus.SetFormatter(logger.Formatter)

	for _, hooks := range logger.Hooks {
		for _, h := range hooks {
			logrus.AddHook(h)
		}
	}
	return nil
}

func ensureDirs() error {
	dirs := []string{
		viper.GetString("reporting.output_dir"),
		viper.GetString("global.data_dir"),
		viper.GetString("storage.path"),
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := utils.EnsureDir(d); err != nil {
			return fmt.Errorf("ensure dir %s: %w", d, err)
		}
	}
	return nil
}

func printBanner() {
	const banner = `
 ____       _       _     _
|  _ \ __ _| |_ ___| |__ | |   _   _ _ __ __  __
| |_) / _. | __/ __| |_ \| |  | | | | |_ \\ V /
|  __/ (_| | || (__| | | | |__| |_| | | | |> <
|_|   \__,_|\__\___|_| |_|_____\__, |_| |_/_/\_\
                               |___/
         ESXi Patch Compliance Reporting
`
	fmt.Print(banner + "\n")
	fmt.Printf("Version %s | Build %s (%s) | %s/%s\n\n", version, commit, buildDate, runtime.GOOS, runtime.GOARCH)
}

func main() {
	startTime := time.Now()
	Execute()
	if strings.EqualFold(viper.GetString("global.log_level"), "debug") {
		logrus.Debugf("Execution completed in %v", time.Since(startTime))
	}
}
