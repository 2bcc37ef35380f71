package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/internal/api"
	"github.com/ajitpratap0/vehicleinsurance/internal/training"
	"github.com/ajitpratap0/vehicleinsurance/pkg/artifact"
	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/observability"
	"github.com/ajitpratap0/vehicleinsurance/pkg/predict"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

const serviceName = "vehicleinsurance"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is resolved.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	shutdown observability.ShutdownFunc
}

func newRootCmd() *cobra.Command {
	var v *viper.Viper

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Vehicle insurance cross-sell scoring",
		Long:          `Trains, persists and serves a model that predicts whether a health insurance customer will buy vehicle insurance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			v, err = newViper(cmd.Flags())
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.String(flagName(keyConfig), "", "path to the YAML configuration (default: "+defaultConfigFile+")")
	pf.String(flagName(keyLogLevel), "", "log level (debug, info, warn, error)")
	pf.String(flagName(keyLogEncoding), "", "log encoding (json, console)")
	pf.String(flagName(keyArtifactBackend), "", "artifact backend (local, s3, gcs)")
	pf.String(flagName(keyArtifactDir), "", "local artifact directory")
	pf.String(flagName(keyDatasetDir), "", "dataset directory")
	pf.Bool(flagName(keyTracing), false, "export OpenTelemetry spans to stdout")

	setup := func(ctx context.Context) (*app, error) {
		cfg, err := loadConfig(v)
		if err != nil {
			return nil, err
		}
		if err := logger.Init(cfg.Logging); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialise logger")
		}
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing, serviceName, version.Version)
		if err != nil {
			return nil, err
		}
		return &app{cfg: cfg, log: logger.With(zap.String("service", serviceName)), shutdown: shutdown}, nil
	}

	root.AddCommand(
		newVersionCmd(),
		newTrainCmd(setup),
		newServeCmd(setup),
		newPredictCmd(setup),
	)
	return root
}

type setupFunc func(ctx context.Context) (*app, error)

func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	_ = logger.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s v%s (api %s)\n", serviceName, version.Version, version.APIVersion)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newTrainCmd(setup setupFunc) *cobra.Command {
	var modelVersion string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model on the configured dataset and persist it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			store, err := artifact.Open(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := training.New(a.cfg, store, a.log).Run(ctx, modelVersion)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&modelVersion, "version", version.Version, "version the trained artifact is saved under")
	return cmd
}

func newServeCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			p, closeStore, err := loadPredictor(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			return api.New(a.cfg.Server, p, a.log).Serve(ctx)
		},
	}
	cmd.Flags().String(flagName(keyAddr), "", "listen address")
	cmd.Flags().String(flagName(keyArtifactVersion), "", "artifact version to serve (default: the software version)")
	return cmd
}

func newPredictCmd(setup setupFunc) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score the records in a JSON file",
		Long: `Score records read from a JSON file (or stdin with --input -). The file holds
either {"inputs": [record, ...]} or a bare array of records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			records, err := readRecords(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			p, closeStore, err := loadPredictor(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := p.Predict(ctx, records)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Errors != nil {
				return errors.New(errors.ErrorTypeValidation, "input validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with records to score (- for stdin)")
	cmd.Flags().String(flagName(keyArtifactVersion), "", "artifact version to load (default: the software version)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// loadPredictor loads the configured artifact version. A missing artifact
// is fatal.
func loadPredictor(ctx context.Context, a *app) (*predict.Predictor, func(), error) {
	store, err := artifact.Open(ctx, a.cfg, a.log)
	if err != nil {
		return nil, nil, err
	}
	modelVersion := a.cfg.Artifact.Version
	if modelVersion == "" {
		modelVersion = version.Version
	}
	chain, err := store.LoadVersion(ctx, modelVersion)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	p := predict.New(a.cfg, chain, predict.WithLogger(a.log), predict.WithVersion(modelVersion))
	return p, func() { _ = store.Close() }, nil
}

// readRecords decodes the predict command input. Numbers keep their
// literal form so integer fields are validated exactly.
func readRecords(stdin io.Reader, path string) ([]table.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read input").WithDetail("path", path)
	}

	var raw []map[string]any
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.UnmarshalNumbers(trimmed, &raw)
	} else {
		var req api.PredictRequest
		err = json.UnmarshalNumbers(trimmed, &req)
		raw = req.Inputs
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "input is not valid JSON").WithDetail("path", path)
	}

	records := make([]table.Record, len(raw))
	for i, r := range raw {
		records[i] = table.Record(r)
	}
	return records, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
