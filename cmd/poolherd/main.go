// Poolherd - bulk miner pool reconfiguration over SSH
//
// A CLI tool for updating the "pools" list inside ccminer JSON configs
// across a fleet of hosts:
//   - Enable or disable a pool URL, or replace the pools list wholesale
//   - Remote backup with pruning (write-once config.json.orig plus a
//     rotation of the last 5 configs)
//   - Optional switchpool trigger via the miner API on the remote loopback
//   - Concurrent SSH sessions with a bounded worker pool (default 10)
//
// Examples:
//
//	poolherd --range 10.10.10.100-10.10.10.200 --username root \
//	    --disable-url "stratum+tcp://ca.vipor.net:5045" --switch-pool
//	poolherd --cidr 10.10.10.0/24 --username root \
//	    --set-pools-json new_pools.json --workers 20
//	poolherd --targets-file rigs.yaml --username root --switch-pool
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/poolherd/poolherd/pkg/fleet"
	"github.com/poolherd/poolherd/pkg/miner"
	"github.com/poolherd/poolherd/pkg/remote"
	"github.com/poolherd/poolherd/pkg/settings"
	"github.com/poolherd/poolherd/pkg/target"
	"github.com/poolherd/poolherd/pkg/util"
	"github.com/poolherd/poolherd/pkg/version"
)

var (
	// Operation flags (mutually exclusive)
	enableURL    string
	disableURL   string
	setPoolsJSON string
	switchPool   bool

	// Target flags
	rangeSpec   string
	cidrSpec    string
	targetsFile string

	// Session flags
	username       string
	password       string
	sshPort        int
	connectTimeout time.Duration

	// Remote path flags
	configPath string
	backupDir  string

	controlPort int
	workers     int
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "poolherd",
	Short:         "Bulk miner pool reconfiguration over SSH",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Poolherd updates the "pools" list inside ccminer JSON configs across a
fleet of hosts over SSH, with versioned remote backups and an optional
switchpool trigger via the miner API.

Exactly one of --enable-url, --disable-url, --set-pools-json may be given
per run; --switch-pool may stand alone. Exit code is 0 only when every
host succeeded, 1 otherwise.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return util.SetLogLevel("debug")
		}
		return util.SetLogLevel("warn")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFleet(cmd)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&enableURL, "enable-url", "", "Pool URL to set disabled=0 (exact match)")
	f.StringVar(&disableURL, "disable-url", "", "Pool URL to set disabled=1 (exact match)")
	f.StringVar(&setPoolsJSON, "set-pools-json", "", "Path to JSON file with a replacement pools array")
	f.BoolVar(&switchPool, "switch-pool", false, "Send 'switchpool' to the miner API on each host")

	f.StringVar(&rangeSpec, "range", "", "IP range (inclusive), e.g. 10.10.10.100-10.10.10.150")
	f.StringVar(&cidrSpec, "cidr", "", "CIDR block, e.g. 10.10.10.0/24")
	f.StringVar(&targetsFile, "targets-file", "", "YAML inventory of hosts/ranges/cidrs")

	f.StringVar(&username, "username", "", "SSH username")
	f.StringVar(&password, "password", "", "SSH password (prompted when omitted)")
	f.IntVar(&sshPort, "ssh-port", 0, fmt.Sprintf("SSH port (default %d)", remote.DefaultSSHPort))
	f.DurationVar(&connectTimeout, "connect-timeout", remote.DefaultConnectTimeout, "SSH connect timeout per host")

	f.StringVar(&configPath, "config-path", "", fmt.Sprintf("Remote miner config path (default %q)", remote.DefaultConfigPath))
	f.StringVar(&backupDir, "backup-dir", "", fmt.Sprintf("Remote backup directory (default %q)", remote.DefaultBackupDir))

	f.IntVar(&controlPort, "control-port", remote.DefaultControlPort, "Miner API port on the remote loopback")
	f.IntVar(&workers, "workers", 0, fmt.Sprintf("Max concurrent SSH sessions (default %d)", fleet.DefaultWorkers))
	f.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("poolherd %s\n", version.Info())
	},
}

func runFleet(cmd *cobra.Command) error {
	userSettings, err := settings.Load()
	if err != nil {
		util.Warnf("Could not load settings: %v", err)
		userSettings = &settings.Settings{}
	}
	applySettingsDefaults(userSettings)

	op, err := buildOperation()
	if err != nil {
		return err
	}
	if op == nil && !switchPool {
		return errors.New("nothing to do: give one of --enable-url, --disable-url, --set-pools-json, or --switch-pool")
	}

	hosts, err := expandTargets()
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		util.Warnf("No hosts found to process.")
		return nil
	}

	if username == "" {
		return errors.New("--username is required (or set a default via 'poolherd settings set username <user>')")
	}
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	driver := remote.NewDriver(remote.Config{
		Username:       username,
		Password:       password,
		Port:           sshPort,
		ConnectTimeout: connectTimeout,
		ConfigPath:     configPath,
		BackupDir:      backupDir,
		Op:             op,
		SwitchPool:     switchPool,
		ControlPort:    controlPort,
	})

	if sshPort == 0 {
		sshPort = remote.DefaultSSHPort
	}
	summary := fleet.Run(cmd.Context(), hosts, workers, sshPort, driver.RunHost, fleet.NewConsoleReporter())
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d hosts failed", summary.Failed, summary.Total)
	}
	return nil
}

// applySettingsDefaults fills flag values the user did not give from the
// persistent settings file. Flags always win.
func applySettingsDefaults(s *settings.Settings) {
	if username == "" {
		username = s.Username
	}
	if sshPort == 0 {
		sshPort = s.SSHPort
	}
	if workers == 0 {
		workers = s.Workers
	}
	if configPath == "" {
		configPath = s.ConfigPath
	}
	if backupDir == "" {
		backupDir = s.BackupDir
	}
}

// buildOperation turns the operation flags into at most one miner.Operation.
func buildOperation() (miner.Operation, error) {
	var ops []miner.Operation
	if enableURL != "" {
		ops = append(ops, miner.EnableURL{URL: enableURL})
	}
	if disableURL != "" {
		ops = append(ops, miner.DisableURL{URL: disableURL})
	}
	if setPoolsJSON != "" {
		data, err := os.ReadFile(setPoolsJSON)
		if err != nil {
			return nil, fmt.Errorf("read --set-pools-json: %w", err)
		}
		pools, err := miner.ParsePoolsArray(data)
		if err != nil {
			return nil, fmt.Errorf("--set-pools-json: %w", err)
		}
		ops = append(ops, miner.ReplacePools{Pools: pools})
	}

	switch len(ops) {
	case 0:
		return nil, nil
	case 1:
		return ops[0], nil
	default:
		return nil, errors.New("--enable-url, --disable-url, and --set-pools-json are mutually exclusive")
	}
}

// expandTargets merges all target sources in flag order and deduplicates
// while preserving first-seen order.
func expandTargets() ([]string, error) {
	if rangeSpec == "" && cidrSpec == "" && targetsFile == "" {
		return nil, errors.New("no targets: give --range, --cidr, or --targets-file")
	}

	var hosts []string
	if rangeSpec != "" {
		expanded, err := target.ExpandRange(rangeSpec)
		if err != nil {
			return nil, fmt.Errorf("invalid --range: %w", err)
		}
		hosts = append(hosts, expanded...)
	}
	if cidrSpec != "" {
		expanded, err := target.ExpandCIDR(cidrSpec)
		if err != nil {
			return nil, fmt.Errorf("invalid --cidr: %w", err)
		}
		hosts = append(hosts, expanded...)
	}
	if targetsFile != "" {
		expanded, err := target.ExpandFile(targetsFile)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return target.Dedup(hosts), nil
}

// promptPassword reads the shared SSH password from the terminal without
// echo. Refuses to proceed when stdin is not a terminal, so scripts must
// pass --password explicitly.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty password")
	}
	return string(b), nil
}
