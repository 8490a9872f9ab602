package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/vae3d/vae"
)

const version = "v0.1.0-dev"

// NewCLI builds the root command with every subcommand attached.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "vae3d",
		Short:         "3D convolutional VAE toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file (default: built-in small config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(
		newParamsCmd(),
		newStepCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vae3d %s\n", version)
		},
	}
}

// loadConfig returns the file named by --config or the built-in default.
func loadConfig(cmd *cobra.Command) (vae.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return vae.DefaultConfig(), nil
	}
	return vae.LoadConfig(path)
}

// newLogger writes text logs to w, at debug level with --verbose.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// extentFlags registers --frames, --height and --width.
func extentFlags(cmd *cobra.Command) {
	cmd.Flags().Int("frames", 1, "Input temporal extent")
	cmd.Flags().Int("height", 16, "Input height")
	cmd.Flags().Int("width", 16, "Input width")
}

func readExtent(cmd *cobra.Command) ([3]int, error) {
	var extent [3]int
	for i, name := range []string{"frames", "height", "width"} {
		v, err := cmd.Flags().GetInt(name)
		if err != nil {
			return extent, err
		}
		if v <= 0 {
			return extent, fmt.Errorf("--%s must be positive, got %d", name, v)
		}
		extent[i] = v
	}
	return extent, nil
}
