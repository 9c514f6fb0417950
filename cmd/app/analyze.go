package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"QuantLab/internal/di"
	"QuantLab/internal/domain/models"
	"QuantLab/internal/usecase"
	xhttp "QuantLab/pkg/http"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	inputPath string
	pretty    bool
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Run the cointegration pipeline on a JSON request file",
	Long: `Reads a pairs request ({"dates", "prices1", "prices2", "entry", "exit",
"lookback", "max_points"}) and prints the analysis result as JSON.

Example:
  quantlab pairs --input ko_pep.json --pretty`,
	RunE: runPairs,
}

var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Fit the regime model on a JSON request file",
	Long: `Reads a regime request ({"dates", "prices", "n_states", "max_points"})
and prints the regime result as JSON.`,
	RunE: runRegime,
}

func init() {
	for _, c := range []*cobra.Command{pairsCmd, regimeCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "-", "request JSON file, - for stdin")
		c.Flags().BoolVar(&pretty, "pretty", false, "indent output")
		rootCmd.AddCommand(c)
	}
}

func runPairs(cmd *cobra.Command, _ []string) error {
	var req models.PairsRequest
	if err := decodeRequest(cmd.Context(), inputPath, &req); err != nil {
		return err
	}
	return withUseCase(func(uc *usecase.AnalysisUseCase) error {
		res, err := uc.Pairs(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res, pretty)
	})
}

func runRegime(cmd *cobra.Command, _ []string) error {
	var req models.RegimeRequest
	if err := decodeRequest(cmd.Context(), inputPath, &req); err != nil {
		return err
	}
	return withUseCase(func(uc *usecase.AnalysisUseCase) error {
		res, err := uc.Regime(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res, pretty)
	})
}

// withUseCase builds the use case without Kafka; logs go to stderr so
// stdout carries only the result.
func withUseCase(fn func(uc *usecase.AnalysisUseCase) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Kafka.Enabled = false
	cfg.Log.Collector.Enabled = false
	cfg.Log.Output = "stderr"

	uc, cleanup, err := di.InitializeUseCase(cfg)
	if err != nil {
		return fmt.Errorf("use case initialization failed: %w", err)
	}
	defer cleanup()
	return fn(uc)
}

// decodeRequest reads path (or stdin for "-"), applies defaults and runs
// the same validation as the HTTP handlers.
func decodeRequest(ctx context.Context, path string, req interface{}) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(req); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if verr := xhttp.ValidateStruct(ctx, req); len(verr) > 0 {
		msgs := lo.Map(verr, func(v xhttp.ValidationError, _ int) string { return v.Message })
		return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
