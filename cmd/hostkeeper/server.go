package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/hostkeeper/pkg/api"
	"github.com/cuemby/hostkeeper/pkg/client"
	"github.com/cuemby/hostkeeper/pkg/manifest"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage servers",
}

var serverAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := manifest.ServerSpec{Name: args[0]}
		spec.ID, _ = cmd.Flags().GetString("id")
		spec.Address, _ = cmd.Flags().GetString("address")
		spec.Role, _ = cmd.Flags().GetString("role")
		spec.Team, _ = cmd.Flags().GetString("team")
		spec.Proxy.Type, _ = cmd.Flags().GetString("proxy")
		spec.LogDrain, _ = cmd.Flags().GetBool("log-drain")
		spec.Sentinel.Enabled, _ = cmd.Flags().GetBool("sentinel")
		spec.Sentinel.URL, _ = cmd.Flags().GetString("sentinel-url")
		spec.DiskUsageThresholdBytes, _ = cmd.Flags().GetInt64("disk-threshold")

		m := &manifest.Manifest{Servers: []manifest.ServerSpec{spec}}
		if err := m.Validate(); err != nil {
			return err
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		server := spec.Server(time.Now())
		if err := store.CreateServer(server); err != nil {
			return fmt.Errorf("failed to save server: %w", err)
		}

		fmt.Printf("✓ Server %s added\n", server.Name)
		fmt.Printf("  ID:      %s\n", server.ID)
		fmt.Printf("  Address: %s\n", server.Address)
		fmt.Printf("  Role:    %s\n", server.Role)
		fmt.Printf("  Proxy:   %s\n", server.Proxy.Type)
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteAddr, _ := cmd.Flags().GetString("remote")

		var servers []api.ServerResponse
		if remoteAddr != "" {
			c, err := client.NewClient(remoteAddr)
			if err != nil {
				return err
			}
			servers, err = c.ListServers(cmd.Context())
			if err != nil {
				return err
			}
		} else {
			store, err := storage.NewBoltStore(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("%w (is the daemon running? use --remote)", err)
			}
			defer store.Close()

			list, err := store.ListServers()
			if err != nil {
				return err
			}
			for _, s := range list {
				servers = append(servers, api.NewServerResponse(s))
			}
		}

		if len(servers) == 0 {
			fmt.Println("No servers found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tROLE\tREADY\tPROXY\tPROXY STATUS")
		for _, s := range servers {
			proxyStatus := s.ProxyStatus
			if proxyStatus == "" {
				proxyStatus = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
				s.ID, s.Name, s.Address, s.Role, s.Reachable && s.Usable, s.ProxyType, proxyStatus)
		}
		return w.Flush()
	},
}

var serverRmCmd = &cobra.Command{
	Use:     "rm SERVER_ID",
	Aliases: []string{"remove"},
	Short:   "Remove a server and its inventory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if _, err := store.GetServer(args[0]); err != nil {
			return err
		}
		if err := store.DeleteServer(args[0]); err != nil {
			return fmt.Errorf("failed to remove server: %w", err)
		}

		fmt.Printf("✓ Server %s removed\n", args[0])
		return nil
	},
}

var serverImportCmd = &cobra.Command{
	Use:   "import -f FILE",
	Short: "Import teams, servers and workloads from a YAML manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		m, err := manifest.ReadFile(file)
		if err != nil {
			return err
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Importing %s...\n", file)
		sum, err := m.Apply(store)
		if err != nil {
			return err
		}

		fmt.Printf("✓ %d team(s), %d server(s), %d resource(s) imported\n", sum.Teams, sum.Servers, sum.Resources)
		return nil
	},
}

func init() {
	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverRmCmd)
	serverCmd.AddCommand(serverImportCmd)

	serverAddCmd.Flags().String("id", "", "Server ID (generated when empty)")
	serverAddCmd.Flags().String("address", "", "Docker endpoint (tcp://host:2375 or unix:///var/run/docker.sock)")
	serverAddCmd.Flags().String("role", "standalone", "Role: standalone, swarm-manager, swarm-worker or build")
	serverAddCmd.Flags().String("team", "", "Owning team ID")
	serverAddCmd.Flags().String("proxy", "none", "Reverse proxy: none, traefik or caddy")
	serverAddCmd.Flags().Bool("log-drain", false, "Keep a log drain running")
	serverAddCmd.Flags().Bool("sentinel", false, "Keep the monitoring agent running")
	serverAddCmd.Flags().String("sentinel-url", "", "Health endpoint of the monitoring agent")
	serverAddCmd.Flags().Int64("disk-threshold", 0, "Alert when Docker disk usage exceeds this many bytes (0 disables)")
	serverAddCmd.MarkFlagRequired("address")

	serverListCmd.Flags().String("remote", "", "Read servers from the daemon at this API address")

	serverImportCmd.Flags().StringP("file", "f", "", "Manifest file")
	serverImportCmd.MarkFlagRequired("file")
}
