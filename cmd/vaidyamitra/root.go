package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/vaidyamitra/internal/bootstrap"
	"github.com/bryanwahyu/vaidyamitra/internal/config"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/logging"
	"github.com/bryanwahyu/vaidyamitra/internal/render"

	apptriage "github.com/bryanwahyu/vaidyamitra/internal/application/triage"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "vaidyamitra",
		Short:        "VaidyaMitra - AI symptom triage",
		Long:         "Describe symptoms, get three candidate conditions, an urgency label and next steps.\n\n" + render.Notice,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "path to config.yaml")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newAnalyzeCmd(g), newServeCmd(g))
	return cmd
}

func (g *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath, true)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if g.verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

type analyzeFlags struct {
	mode        string
	temperature float32
	apiKey      string
	plain       bool
	style       string
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [symptoms...]",
		Short: "Analyze a symptom description once",
		Example: `  vaidyamitra analyze "I have a mild headache"
  echo "fever and cough for two days" | vaidyamitra analyze --mode agents`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			// CLI runs keep stdout clean; logs go to stderr only on --verbose
			if !g.verbose {
				logger = zap.NewNop()
			}

			symptoms, err := readSymptoms(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, err := bootstrap.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			in := f.command(symptoms, cmd.Flags().Changed("temperature"))
			return runAnalyze(cmd.Context(), app.Service, in, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&f.mode, "mode", "", "pipeline mode: direct or agents (default from config)")
	cmd.Flags().Float32Var(&f.temperature, "temperature", 0, "sampling temperature in [0,1] (default from config)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "provider API key for this run (overrides XAI_API_KEY)")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "print the report without markdown rendering")
	cmd.Flags().StringVar(&f.style, "style", "dark", "markdown style: dark, light, notty")
	return cmd
}

// command builds the analysis input. The temperature is only sent when the
// flag was given, so --temperature 0 is honoured.
func (f *analyzeFlags) command(symptoms string, temperatureSet bool) apptriage.AnalyzeCommand {
	in := apptriage.AnalyzeCommand{Symptoms: symptoms, APIKey: f.apiKey, Mode: f.mode}
	if temperatureSet {
		t := f.temperature
		in.Temperature = &t
	}
	return in
}

type analyzer interface {
	Analyze(ctx context.Context, cmd apptriage.AnalyzeCommand) (*triage.AnalysisResult, error)
}

func runAnalyze(ctx context.Context, svc analyzer, in apptriage.AnalyzeCommand, f *analyzeFlags, out, errOut io.Writer) error {
	fmt.Fprintln(errOut, "VaidyaMitra is analyzing your symptoms, please wait...")
	res, err := svc.Analyze(ctx, in)
	if err != nil {
		fmt.Fprintln(errOut, render.ErrorHint(err))
		return err
	}
	text, err := render.Terminal(res, f.style, f.plain)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

func readSymptoms(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file, ok := stdin.(*os.File); ok {
		if st, err := file.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("describe your symptoms as arguments or pipe them on stdin")
		}
	}
	b, err := io.ReadAll(io.LimitReader(stdin, 64<<10))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return bootstrap.Serve(cmd.Context(), cfg, logger)
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
