package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/LdDl/lanenet"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
		phase      int
		input      string
		city       string
		outputDir  string
	)
	cmd := &cobra.Command{
		Use:           "lanenet",
		Short:         "Reduce street centerlines into simulator-ready lane network",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := lanenet.DefaultConfig()
			if configPath != "" {
				var err error
				cfg, err = lanenet.LoadConfig(configPath)
				if err != nil {
					return err
				}
			}
			logger, err := lanenet.NewLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger = logger.With(zap.String("run_id", uuid.NewString()))

			if phase == 0 {
				phase, err = promptPhase(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}
			start, err := lanenet.ParsePhase(phase)
			if err != nil {
				return err
			}

			options := []func(*lanenet.Pipeline){lanenet.WithLogger(logger)}
			if input != "" {
				options = append(options, lanenet.WithInput(input))
			}
			if city != "" {
				options = append(options, lanenet.WithCity(city))
			}
			if outputDir != "" {
				options = append(options, lanenet.WithOutputDir(outputDir))
			}
			pipeline := lanenet.NewPipeline(cfg, options...)
			if verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), cfg)
				fmt.Fprintln(cmd.ErrOrStderr(), pipeline)
			}
			return pipeline.Run(cmd.Context(), start)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML, TOML or JSON). Defaults are used when empty")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().IntVarP(&phase, "phase", "p", 0, "Starting phase (1-9). Asked interactively when not set")
	cmd.Flags().StringVar(&input, "input", "", "Input layer: .geojson, .shp, .osm, .pbf or .osm.bz2")
	cmd.Flags().StringVar(&city, "city", "", "City identifier used in output file names")
	cmd.Flags().StringVar(&outputDir, "out", "", "Output directory")
	return cmd
}

func promptPhase(in io.Reader, out io.Writer) (int, error) {
	fmt.Fprint(out, "Enter the starting phase: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	phase, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, fmt.Errorf("starting phase should be an integer: %w", err)
	}
	return phase, nil
}
