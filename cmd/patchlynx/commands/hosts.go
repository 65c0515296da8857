package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opslynx/patchlynx/internal/compliance"
	"github.com/opslynx/patchlynx/internal/vsphere"
)

func NewHostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Resolve and list target hosts without scanning",
		Long: `Resolve the given host and group filters against the management server
and show which hosts a report run would target, including their
connection state. No scan is triggered.`,
		RunE: runHosts,
	}

	cmd.Flags().StringSliceP("hosts", "H", nil, "Host names to resolve")
	cmd.Flags().StringSliceP("groups", "g", nil, "Host group names to resolve")
	cmd.Flags().BoolP("all", "a", false, "List every host the server manages")
	_ = viper.BindPFlag("hosts.hosts", cmd.Flags().Lookup("hosts"))
	_ = viper.BindPFlag("hosts.groups", cmd.Flags().Lookup("groups"))
	_ = viper.BindPFlag("hosts.all", cmd.Flags().Lookup("all"))

	return cmd
}

func runHosts(cmd *cobra.Command, args []string) error {
	filter := compliance.Filter{
		Hosts:  viper.GetStringSlice("hosts.hosts"),
		Groups: viper.GetStringSlice("hosts.groups"),
		All:    viper.GetBool("hosts.all"),
	}
	if filter.IsZero() {
		return fmt.Errorf("no targets selected: use --hosts, --groups or --all")
	}

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("connection.timeout")+time.Minute)
	defer cancel()

	logger := logrus.StandardLogger()
	session := vsphere.NewSession(connectionConfig(), logger)
	if err := session.Login(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = session.Logout(ctx) }()

	client := vsphere.NewClient(session, viper.GetInt("connection.rate_limit"), logger, nil)
	resolver := compliance.NewResolver(client, logger, nil)

	targets, err := resolver.Resolve(ctx, filter)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("No hosts matched the filter.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tSCANNABLE\tSOURCE")
	for _, t := range targets {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", t.Name, t.State, t.State.Eligible(), t.Source)
	}
	return w.Flush()
}
