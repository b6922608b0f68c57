package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/poolherd/poolherd/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.poolherd/settings.json.

Settings provide defaults for run flags:
  username     - SSH username (--username default)
  ssh_port     - SSH port (--ssh-port default)
  workers      - Worker count (--workers default)
  config_path  - Remote miner config path (--config-path default)
  backup_dir   - Remote backup directory (--backup-dir default)

Examples:
  poolherd settings show
  poolherd settings set username root
  poolherd settings set ssh_port 8022
  poolherd settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			fmt.Printf("  %-12s %s\n", name, value)
		}

		printSetting("username", s.Username)
		if s.SSHPort != 0 {
			printSetting("ssh_port", strconv.Itoa(s.SSHPort))
		} else {
			printSetting("ssh_port", "")
		}
		if s.Workers != 0 {
			printSetting("workers", strconv.Itoa(s.Workers))
		} else {
			printSetting("workers", "")
		}
		printSetting("config_path", s.ConfigPath)
		printSetting("backup_dir", s.BackupDir)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting := args[0]
		value := args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "username":
			s.Username = value
		case "ssh_port":
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid port: %s", value)
			}
			s.SSHPort = port
		case "workers":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid worker count: %s", value)
			}
			s.Workers = n
		case "config_path":
			s.ConfigPath = value
		case "backup_dir":
			s.BackupDir = value
		default:
			return fmt.Errorf("unknown setting: %s (valid: username, ssh_port, workers, config_path, backup_dir)", setting)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", setting, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
