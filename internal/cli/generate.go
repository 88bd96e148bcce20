package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gradle-sources-list/internal/app"
)

type generateOptions struct {
	Graph             string
	Output            string
	DownloadDirectory string
	Include           []string
	Exclude           []string
	Workers           int
}

func newGenerateCommand() *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Resolve all dependencies and write the sources list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Graph, "graph", "", "Dependency graph export file")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output sources list path")
	cmd.Flags().StringVar(&opts.DownloadDirectory, "download-directory", "", "Destination directory prefix for dest fields")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "Dependency groups to include (default all)")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Dependency groups to exclude")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Resolution worker limit")

	_ = viper.BindPFlag("graph", cmd.Flags().Lookup("graph"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("download_directory", cmd.Flags().Lookup("download-directory"))
	_ = viper.BindPFlag("include", cmd.Flags().Lookup("include"))
	_ = viper.BindPFlag("exclude", cmd.Flags().Lookup("exclude"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, opts generateOptions) error {
	service := app.NewService()
	result, err := service.Generate(ctx, app.GenerateRequest{
		GraphPath:         resolveString(cmd, opts.Graph, "graph", "graph"),
		OutputFile:        resolveString(cmd, opts.Output, "output", "output"),
		DownloadDirectory: resolveString(cmd, opts.DownloadDirectory, "download_directory", "download-directory"),
		Include:           resolveStrings(cmd, opts.Include, "include", "include"),
		Exclude:           resolveStrings(cmd, opts.Exclude, "exclude", "exclude"),
		Workers:           resolveInt(cmd, opts.Workers, "workers", "workers"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("sources list written: %s (%d entries)\n", result.OutputFile, result.Entries)
	return nil
}

// Flags explicitly set on the command line win; otherwise the viper
// value (config file or environment) applies.
func resolveString(cmd *cobra.Command, flagValue string, viperKey string, flagName string) string {
	if cmd.Flags().Changed(flagName) {
		return flagValue
	}
	if viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	return flagValue
}

func resolveStrings(cmd *cobra.Command, flagValue []string, viperKey string, flagName string) []string {
	if cmd.Flags().Changed(flagName) {
		return flagValue
	}
	if viper.IsSet(viperKey) {
		return viper.GetStringSlice(viperKey)
	}
	return flagValue
}

func resolveInt(cmd *cobra.Command, flagValue int, viperKey string, flagName string) int {
	if cmd.Flags().Changed(flagName) {
		return flagValue
	}
	if viper.IsSet(viperKey) {
		return viper.GetInt(viperKey)
	}
	return flagValue
}
