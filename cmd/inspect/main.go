// Package main is an offline helper that shows what the trader would do with
// a chat message or a token price, and renders its trade journal.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-signal-trader/internal/config"
	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/exitplan"
	"solana-signal-trader/internal/parser"
	"solana-signal-trader/internal/reporting"
	"solana-signal-trader/internal/storage/file"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("inspect failed")
	}
}

// run executes the command line args against the given streams.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetOut(stdout)
	root.SetErr(io.Discard)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inspect",
		Short:         "Inspect messages, exit plans and the trade journal offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newJournalCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// parseOutput is the JSON printed by the parse command.
type parseOutput struct {
	Kind      domain.IntentKind  `json:"kind,omitempty"`
	Intent    domain.TradeIntent `json:"intent"`
	BuySignal bool               `json:"buy_signal"`
	Trending  string             `json:"trending_symbol,omitempty"`
}

func newParseCmd() *cobra.Command {
	var native, path string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a tracker message read from stdin or --file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if path != "" {
				raw, err = os.ReadFile(path)
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read message: %w", err)
			}
			text := strings.TrimRight(string(raw), "\n")

			out := parseOutput{Intent: parser.Parse(text)}
			if out.Intent != nil {
				out.Kind = out.Intent.Kind()
				out.BuySignal = parser.IsBuySignal(out.Intent, native)
			}
			if symbol, ok := parser.ParseTrendingAlert(text); ok {
				out.Trending = symbol
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&native, "native", "SOL", "Native symbol a buy must be paid with")
	cmd.Flags().StringVar(&path, "file", "", "Read the message from this file instead of stdin")
	return cmd
}

func newPlanCmd() *cobra.Command {
	def := exitplan.DefaultConfig()
	var (
		price, nativePrice, budget string
		stopLoss, tp1, tp2, frac   string
		decimals                   int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the buy size and exit orders for a token price",
		Example: `  inspect plan --price 0.0004 --decimals 6 --native-price 150 --budget 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]decimal.Decimal{}
			for name, raw := range map[string]string{
				"price":        price,
				"native-price": nativePrice,
				"budget":       budget,
				"stop-loss":    stopLoss,
				"tp1":          tp1,
				"tp2":          tp2,
				"tp1-fraction": frac,
			} {
				d, err := decimal.NewFromString(raw)
				if err != nil {
					return fmt.Errorf("plan: --%s: %w", name, err)
				}
				values[name] = d
			}

			cfg := def
			cfg.StopLossMultiplier = values["stop-loss"]
			cfg.FirstTakeProfitMultiplier = values["tp1"]
			cfg.SecondTakeProfitMultiplier = values["tp2"]
			cfg.FirstTakeProfitFraction = values["tp1-fraction"]

			calc, err := exitplan.New(cfg)
			if err != nil {
				return err
			}
			plan, err := calc.Compute(exitplan.Input{
				PriceUSD:       values["price"],
				TokenDecimals:  decimals,
				BudgetNative:   values["budget"],
				NativeUSDPrice: values["native-price"],
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}

	f := cmd.Flags()
	f.StringVar(&price, "price", "", "Token price in USD")
	f.IntVar(&decimals, "decimals", 0, "Token decimals")
	f.StringVar(&nativePrice, "native-price", "", "SOL price in USD")
	f.StringVar(&budget, "budget", "0.01", "SOL to spend")
	f.StringVar(&stopLoss, "stop-loss", def.StopLossMultiplier.String(), "Stop-loss multiplier")
	f.StringVar(&tp1, "tp1", def.FirstTakeProfitMultiplier.String(), "First take-profit multiplier")
	f.StringVar(&tp2, "tp2", def.SecondTakeProfitMultiplier.String(), "Second take-profit multiplier")
	f.StringVar(&frac, "tp1-fraction", def.FirstTakeProfitFraction.String(), "Share sold at the first take-profit")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("decimals")
	cmd.MarkFlagRequired("native-price")
	return cmd
}

func newJournalCmd() *cobra.Command {
	var path, format string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Render the trade journal file as Markdown, CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reporting.NewGenerator(file.NewTradeJournal(path)).Generate(cmd.Context())
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "md":
				_, err = io.WriteString(out, reporting.RenderMarkdown(report))
			case "csv":
				_, err = io.WriteString(out, reporting.RenderCSV(report.Positions))
			case "json":
				err = writeJSON(out, report)
			default:
				err = fmt.Errorf("journal: unknown format %q", format)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&path, "path", "data/trades.json", "Trade journal file")
	cmd.Flags().StringVar(&format, "format", "md", "Output format: md, csv or json")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Load, validate and print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg.Redacted())
		},
	}
	cmd.Flags().StringVar(&path, "config", os.Getenv("SIGNAL_CONFIG"), "Path to TOML config file")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
