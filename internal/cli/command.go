package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/aws-credentials-switcher/internal/awsswitch"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/credentials"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
	"github.com/example/aws-credentials-switcher/internal/config"
	"github.com/example/aws-credentials-switcher/internal/logging"
)

// ExitConfig is returned when a required configuration directory is missing
// (EX_CONFIG from sysexits.h).
const ExitConfig = 78

// aliasVersions are the alternatives reachable through use-<name> shortcuts.
var aliasVersions = []string{"v1", "v2", "v3"}

// env carries what the subcommands share. The manager is built once the
// persistent flags have been parsed.
type env struct {
	fs     afero.Fs
	viper  *viper.Viper
	stderr io.Writer
	logger *slog.Logger
	mgr    *awsswitch.Manager
}

func (e *env) setup() error {
	cfg, err := config.Load(e.viper, e.fs)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	e.logger = logging.New(e.stderr, level)
	e.mgr = awsswitch.NewManager(e.fs, cfg.Home, e.logger)
	e.logger.Debug("configuration resolved",
		"home", cfg.Home,
		"log_level", cfg.LogLevel,
		"config_file", cfg.File)
	return nil
}

// NewRootCommand constructs the root Cobra command for aws-switch.
func NewRootCommand(fs afero.Fs, prompter Prompter, stdout, stderr io.Writer) *cobra.Command {
	e := &env{fs: fs, viper: viper.New(), stderr: stderr}

	cmd := &cobra.Command{
		Use:   "aws-switch",
		Short: "AWS credentials directory switcher",
		Long: "aws-switch replaces ~/.aws with one of the ~/.aws.<name> alternatives " +
			"while keeping the access keys of the profiles you are currently using.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %s", domain.ErrUnrecognizedCommand, args[0])
			}
			return cmd.Help()
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cobra.CheckErr(config.RegisterFlags(e.viper, cmd.PersistentFlags()))

	cmd.AddCommand(newUseCommand(e, prompter, stdout))
	for _, version := range aliasVersions {
		cmd.AddCommand(newUseAliasCommand(e, version, stdout))
	}
	cmd.AddCommand(newListCommand(e, stdout))
	cmd.AddCommand(newCheckCommand(e, stdout))
	cmd.AddCommand(newPruneCommand(e, prompter, stdout))

	return cmd
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfigurationMissing):
		return ExitConfig
	default:
		return 1
	}
}

func newUseCommand(e *env, prompter Prompter, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "use [alternative]",
		Short: "Replace ~/.aws with ~/.aws.<alternative>, keeping current access keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
				// Early validation of command-line argument
				if valid, err := e.mgr.ValidateAlternativeName(name); !valid {
					return fmt.Errorf("invalid alternative name: %w", err)
				}
			} else {
				names, err := e.mgr.AlternativeNames()
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return fmt.Errorf("%w: no ~/.aws.<name> directories in %s", domain.ErrConfigurationMissing, e.mgr.HomeDir())
				}
				lastUsed := e.mgr.LastUsed()
				names = reorderWithDefault(names, lastUsed)
				_, selected, err := prompter.Select("Select alternative to activate", names, lastUsed)
				if err != nil {
					return err
				}
				name = selected
			}
			return runUse(e.mgr, name, stdout)
		},
	}
}

func newUseAliasCommand(e *env, version string, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "use-" + version,
		Short: fmt.Sprintf("Shorthand for 'use %s'", version),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUse(e.mgr, version, stdout)
		},
	}
}

func runUse(mgr *awsswitch.Manager, name string, stdout io.Writer) error {
	result, err := mgr.Use(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Successfully switched to %s (%d profile(s) kept their keys).\n",
		result.Alternative, len(result.Restored))
	return nil
}

func newListCommand(e *env, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alternative directories and their profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alts, err := e.mgr.Alternatives()
			if err != nil {
				return err
			}
			if len(alts) == 0 {
				fmt.Fprintf(stdout, "No alternative directories found in %s.\n", e.mgr.HomeDir())
				return nil
			}

			table := newTable(stdout, []string{"", "Alternative", "Profile", "Access Key ID"})
			for _, alt := range alts {
				marker := ""
				if alt.LastUsed {
					marker = "*"
				}
				switch {
				case alt.Err != nil:
					table.Append([]string{marker, alt.Name, "error: " + alt.Err.Error(), ""})
				case len(alt.Profiles) == 0:
					table.Append([]string{marker, alt.Name, "-", ""})
				default:
					for i, cred := range alt.Profiles {
						name := alt.Name
						if i > 0 {
							marker, name = "", ""
						}
						table.Append([]string{marker, name, cred.DisplayName(), credentials.Obfuscate(cred.AccessKeyID, 4)})
					}
				}
			}
			table.Render()
			return nil
		},
	}
}

func newCheckCommand(e *env, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check [alternative]",
		Short: "Resolve every profile with the AWS SDK without switching",
		Long: "check loads each complete profile of ~/.aws (or ~/.aws.<alternative>) through the " +
			"AWS SDK shared configuration loader and reports whether the SDK sees the same keys.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results, err := e.mgr.Check(ctx, name)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(stdout, "No credentials were found.")
				return nil
			}

			table := newTable(stdout, []string{"Profile", "Access Key ID", "Result"})
			for _, res := range results {
				status := "ok"
				if !res.Resolved {
					status = "failed: " + res.Err.Error()
				}
				table.Append([]string{res.Profile, res.AccessKeyID, status})
			}
			table.Render()
			return nil
		},
	}
}

func newPruneCommand(e *env, prompter Prompter, stdout io.Writer) *cobra.Command {
	var olderThanStr string
	var force bool

	cmd := &cobra.Command{
		Use:   "prune-backups",
		Short: "Remove outdated credentials backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var duration time.Duration
			var err error

			if olderThanStr != "" {
				duration, err = parseHumanDuration(olderThanStr)
				if err != nil {
					return err
				}
			} else {
				options := []string{"30d", "90d", "180d", "Cancel"}
				_, choice, err := prompter.Select("Prune backups older than", options, "30d")
				if err != nil {
					return err
				}
				if choice == "Cancel" {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
				duration, err = parseHumanDuration(choice)
				if err != nil {
					return err
				}
			}

			if !force {
				confirm, err := prompter.Confirm(fmt.Sprintf("Delete backups older than %s? (y/N)", duration), false)
				if err != nil {
					return err
				}
				if !confirm {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
			}

			count, err := e.mgr.PruneBackups(duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %d backup(s) from %s.\n", count, e.mgr.BackupDir())
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThanStr, "older-than", "", "Delete backups older than the specified duration (e.g. 30d)")
	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")

	return cmd
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("   ")
	table.SetNoWhiteSpace(true)
	return table
}

func parseHumanDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return 0, errors.New("duration cannot be empty")
	}
	if strings.HasSuffix(value, "d") {
		days := strings.TrimSuffix(value, "d")
		v, err := parseDays(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration: %w", err)
		}
		return v, nil
	}
	if strings.HasSuffix(value, "h") || strings.HasSuffix(value, "m") || strings.HasSuffix(value, "s") {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return 0, err
		}
		if dur < 0 {
			return 0, fmt.Errorf("duration cannot be negative")
		}
		return dur, nil
	}
	return 0, fmt.Errorf("unsupported duration format: %s", value)
}

func parseDays(value string) (time.Duration, error) {
	d, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid day duration: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid day duration: %d", d)
	}
	return time.Duration(d) * 24 * time.Hour, nil
}

// reorderWithDefault moves the default value to the front of the list.
// If defaultValue is empty or not found, or already first, returns items unchanged.
func reorderWithDefault(items []string, defaultValue string) []string {
	if defaultValue == "" {
		return items
	}

	idx := -1
	for i, item := range items {
		if item == defaultValue {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return items
	}

	reordered := make([]string, 0, len(items))
	reordered = append(reordered, defaultValue)
	reordered = append(reordered, items[:idx]...)
	reordered = append(reordered, items[idx+1:]...)
	return reordered
}
