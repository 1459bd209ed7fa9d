package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"logstore-go/internal/app"
	"logstore-go/internal/config"
	"logstore-go/internal/logstore"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a LogStoreApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Store", "Retrieve").
func newApp(cmd *cobra.Command, operation string) (*app.LogStoreApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}

	if err := app.ResolvePassword(cfg, os.Stdin, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}

	a, err := app.NewLogStoreApp(cmd.Context(), cfg, operation, level)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// execContext builds the execution context from the --execid, --job-id and
// --project flags.
func execContext(cmd *cobra.Command) logstore.ExecutionContext {
	execID, _ := cmd.Flags().GetString("execid")
	jobID, _ := cmd.Flags().GetString("job-id")
	project, _ := cmd.Flags().GetString("project")
	return logstore.NewExecutionContext(execID, jobID, project)
}

func addExecFlags(cmd *cobra.Command, requireExecID bool) {
	cmd.Flags().StringP("execid", "e", "", "Execution ID")
	cmd.Flags().StringP("job-id", "j", "", "Job ID (may be blank)")
	cmd.Flags().StringP("project", "p", "", "Project name")
	if requireExecID {
		cmd.MarkFlagRequired("execid")
	}
}

var rootCmd = &cobra.Command{
	Use:          "logstore",
	Short:        "Archive execution logs to a WebDAV or S3 store",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Remote.Type, _ = cmd.Flags().GetString("type")
		cfg.Remote.BaseURL, _ = cmd.Flags().GetString("base-url")
		cfg.Remote.Username, _ = cmd.Flags().GetString("username")
		if path, _ := cmd.Flags().GetString("path"); path != "" {
			cfg.Path = path
		}
		if err := logstore.ValidateTemplate(cfg.Path); err != nil {
			return err
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Path:     %s\n", cfg.Path)
		fmt.Printf("Base URL: %s\n", cfg.Remote.BaseURL)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		password := ""
		if cfg.Remote.Password != "" {
			password = "********"
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Path:     %s\n", cfg.Path)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Type:     %s\n", cfg.Remote.Type)
		fmt.Printf("Base URL: %s\n", cfg.Remote.BaseURL)
		fmt.Printf("Username: %s\n", cfg.Remote.Username)
		fmt.Printf("Password: %s\n", password)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe the storage backend and its properties",
	Run: func(cmd *cobra.Command, args []string) {
		d := logstore.Description
		fmt.Printf("%s (%s)\n%s\n\n", d.Title, d.Provider, d.Description)
		for _, p := range d.Properties {
			required := ""
			if p.Required {
				required = " (required)"
			}
			fmt.Printf("  %s%s\n      %s\n", p.Name, required, p.Description)
			if p.DefaultValue != "" {
				fmt.Printf("      Default: %s\n", p.DefaultValue)
			}
		}
	},
}

var storeCmd = &cobra.Command{
	Use:   "store FILE",
	Short: "Archive a log file (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		execCtx := execContext(cmd)
		if execCtx.Get(logstore.KeyExecID) == "" {
			execCtx[logstore.KeyExecID] = uuid.NewString()
		}

		a, err := newApp(cmd, "Store")
		if err != nil {
			return err
		}
		defer a.Close()

		location, size, err := a.StoreFile(ctx, execCtx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Stored execution %s", execCtx.Get(logstore.KeyExecID))
		if size >= 0 {
			fmt.Printf(" (%s)", humanize.Bytes(uint64(size)))
		}
		fmt.Printf(" to %s\n", location)
		return nil
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve an archived log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, "Retrieve")
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		counter := &countingWriter{w: w}
		location, err := a.Retrieve(ctx, execContext(cmd), counter)
		if err != nil {
			return err
		}

		if output != "" && output != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Retrieved %s from %s\n", humanize.Bytes(uint64(counter.n)), location)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a log has been archived",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		available, location, err := a.IsAvailable(cmd.Context(), execContext(cmd))
		if err != nil {
			return err
		}

		state := "not found"
		if available {
			state = "available"
		}
		fmt.Printf("%s\t%s\n", state, location)
		return nil
	},
}

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the location a log would be archived at",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Path")
		if err != nil {
			return err
		}
		defer a.Close()

		location, err := a.ResolveLocation(execContext(cmd))
		if err != nil {
			return err
		}
		fmt.Println(location)
		return nil
	},
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug output")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("type", "webdav", "Remote store type: webdav, s3, filesystem or memory")
	configInitCmd.Flags().String("base-url", "", "Remote store base URL")
	configInitCmd.Flags().String("username", "", "Remote store username")
	configInitCmd.Flags().String("path", "", "Path template (default "+logstore.DefaultPathTemplate+")")

	addExecFlags(storeCmd, false)
	addExecFlags(retrieveCmd, true)
	retrieveCmd.Flags().StringP("output", "o", "", "Write the log to a file instead of stdout")
	addExecFlags(statusCmd, true)
	addExecFlags(pathCmd, true)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pathCmd)
}
