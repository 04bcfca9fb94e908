package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"TradeAdvisor/internal/advisor"
	"TradeAdvisor/internal/collector"
	"TradeAdvisor/internal/config"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/notifier"
	"TradeAdvisor/internal/portfolio"
	"TradeAdvisor/internal/recorder"
	"TradeAdvisor/internal/repository"
	"TradeAdvisor/internal/scheduler"
	"TradeAdvisor/internal/strategy"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	rec     recorder.Recorder
	advisor *advisor.Advisor
}

func setup(cmd *cli.Command) (*app, error) {
	cfg, err := config.LoadStrategy(cmd.String("config"), cmd.String("strategy"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := cmd.String("tickers"); v != "" {
		cfg.Tickers = config.SplitTickers(v)
	}
	if v := cmd.String("positions"); v != "" {
		cfg.PositionsFile = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	fetcher := newFetcher(cfg)
	log.Info("data source", zap.String("source", fetcher.Name()), zap.Strings("tickers", cfg.Tickers))

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}

	adv := advisor.New(advisor.Options{
		Tickers:       cfg.Tickers,
		Engine:        engineCfg,
		PositionsFile: cfg.PositionsFile,
		StateFile:     cfg.Ledger.StateFile,
		Collector:     collector.NewCollector(fetcher, log.Named("collector")),
		Recorder:      rec,
	}, log.Named("advisor"))

	return &app{cfg: cfg, log: log, rec: rec, advisor: adv}, nil
}

func (a *app) close() {
	if err := a.rec.Close(); err != nil {
		a.log.Warn("close recorder", zap.Error(err))
	}
	_ = a.log.Sync()
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Type {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "csv":
		return collector.NewCSVFetcher(cfg.DataSource.Dir)
	case "mock":
		return &collector.MockFetcher{}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	end := cmd.Timestamp("end")
	start := cmd.Timestamp("start")
	if !cmd.IsSet("start") {
		start = end.AddDate(-1, 0, 0)
	}
	if start.After(end) {
		return fmt.Errorf("--start %s is after --end %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe("walking forward")
		}
		_ = bar.Set(done)
	}
	if cmd.Bool("quiet") {
		progress = nil
	}

	report, err := a.advisor.Backtest(ctx, start, end, progress)
	if report == nil {
		return err
	}
	printReport(report, cmd.Bool("context"), int(cmd.Int("stats")))
	all, yearly := portfolio.ClosedPerformance(report.Result.Trades)
	fmt.Printf("\nClosed trades: %s, pnl %s\n", all.BattingAverage(), all.PnL.StringFixed(2))
	for _, p := range yearly {
		fmt.Printf("  %d: %s, pnl %s\n", p.Year, p.BattingAverage(), p.PnL.StringFixed(2))
	}
	return err
}

func todayAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	asOf := time.Now()
	if cmd.IsSet("date") {
		asOf = cmd.Timestamp("date")
	}
	report, err := a.advisor.AsOf(ctx, asOf)
	if report == nil {
		return err
	}
	printReport(report, true, int(cmd.Int("stats")))

	if cmd.Bool("notify") {
		if a.cfg.Telegram.BotToken == "" || a.cfg.Telegram.ChatID == "" {
			return fmt.Errorf("--notify needs telegram.bot_token and telegram.chat_id")
		}
		tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log.Named("telegram"))
		msg := notifier.FormatTradeActions(report.Session, report.Result.Actions) + "\n\n" + notifier.FormatPortfolio(report.Portfolio())
		if sendErr := tn.SendWithRetry(ctx, msg, 3); sendErr != nil {
			return sendErr
		}
	}
	return err
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.ValidateServe(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log.Named("telegram"))
	sched := scheduler.NewScheduler(ctx, a.advisor, tn, a.log.Named("scheduler"))
	if err := sched.Register(a.cfg.Schedule.DailyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	a.log.Info("telegram polling started")

	if cmd.Bool("run-on-start") {
		a.log.Info("run-on-start enabled, executing daily task now")
		go sched.RunNow()
	}

	a.log.Info("TradeAdvisor is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	a.log.Info("shutdown signal received, stopping...")
	return nil
}

func positionsPath(cmd *cli.Command) (string, error) {
	if v := cmd.String("positions"); v != "" {
		return v, nil
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.PositionsFile == "" {
		return "", fmt.Errorf("no positions file: set positions_file or --positions")
	}
	return cfg.PositionsFile, nil
}

func listPositionsAction(_ context.Context, cmd *cli.Command) error {
	path, err := positionsPath(cmd)
	if err != nil {
		return err
	}
	positions, err := repository.LoadPositions(path)
	if err != nil {
		return err
	}
	for _, p := range positions {
		fmt.Printf("%s %-6s size %g @ %.2f\n", p.Date.Format(model.DateLayout), p.Ticker, p.Size, p.Price)
	}
	if len(positions) == 0 {
		fmt.Println("No recorded positions.")
	}
	return nil
}

func addPositionAction(_ context.Context, cmd *cli.Command) error {
	path, err := positionsPath(cmd)
	if err != nil {
		return err
	}
	positions, err := repository.LoadPositions(path)
	if err != nil {
		return err
	}
	added := model.RecordedPosition{
		Date:   model.Day(cmd.Timestamp("date")),
		Ticker: strings.ToUpper(cmd.String("ticker")),
		Size:   cmd.Float("size"),
		Price:  cmd.Float("price"),
	}
	if added.Size <= 0 || added.Price <= 0 {
		return fmt.Errorf("--size and --price must be positive")
	}
	for _, p := range positions {
		if p.Ticker == added.Ticker && model.SameDay(p.Date, added.Date) {
			return fmt.Errorf("%s already has a recorded position on %s", added.Ticker, added.Date.Format(model.DateLayout))
		}
	}
	if err := repository.SavePositions(path, append(positions, added)); err != nil {
		return err
	}
	fmt.Printf("recorded %s %s size %g @ %.2f\n", added.Date.Format(model.DateLayout), added.Ticker, added.Size, added.Price)
	return nil
}

func printReport(r *advisor.Report, withContext bool, lastStats int) {
	if lastStats > 0 {
		for _, ticker := range sortedTickers(r.Result.Stats) {
			stats := r.Result.Stats[ticker]
			if len(stats) > lastStats {
				stats = stats[len(stats)-lastStats:]
			}
			for _, s := range stats {
				fmt.Println(s.AsText(true))
			}
		}
		fmt.Println()
	}

	for _, a := range r.Result.Actions {
		fmt.Println(a.AsText(withContext))
		if withContext {
			fmt.Println()
		}
	}
	if len(r.Result.Actions) == 0 {
		fmt.Println("No trade actions.")
	}
	for _, t := range r.Result.Excluded {
		fmt.Printf("excluded: %s (no data)\n", t)
	}
	for t, err := range r.Result.Failures {
		fmt.Printf("failed: %s: %v\n", t, err)
	}

	stats := r.Portfolio()
	fmt.Printf("\nOpen positions: %d, invested %s, value %s, pnl %s (%s%%)\n",
		len(stats.Positions), stats.TotalInvested.StringFixed(2), stats.Value.StringFixed(2),
		stats.PnL.StringFixed(2), stats.PnLPct.StringFixed(2))
	for _, p := range stats.Positions {
		fmt.Printf("  %s %s x%s @ %s -> %s (%s%%)\n", p.Date.Format(model.DateLayout), p.Ticker,
			p.Units.String(), p.Open.StringFixed(2), p.Price.StringFixed(2), p.PnLPct.StringFixed(2))
	}
}

func sortedTickers(stats map[string][]model.DailyStat) []string {
	tickers := make([]string, 0, len(stats))
	for t := range stats {
		tickers = append(tickers, t)
	}
	slices.Sort(tickers)
	return tickers
}

func main() {
	dateFlag := func(name, usage string, value time.Time) *cli.TimestampFlag {
		return &cli.TimestampFlag{
			Name:   name,
			Usage:  usage,
			Value:  value,
			Config: cli.TimestampConfig{Layouts: []string{model.DateLayout}},
		}
	}
	statsFlag := func() *cli.IntFlag {
		return &cli.IntFlag{
			Name:  "stats",
			Usage: "print the last `N` daily stats of every instrument",
		}
	}

	cmd := &cli.Command{
		Name:  "advisor",
		Usage: "Explained BUY/SELL advice from RSI and Bollinger Band rules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "tickers",
				Aliases: []string{"t"},
				Usage:   "comma separated tickers, overriding the config",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("rule family (%s), overriding the config", strings.Join(strategy.Names(), ", ")),
			},
			&cli.StringFlag{
				Name:  "positions",
				Usage: "recorded positions CSV (date,ticker,size,price), overriding the config",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "backtest",
				Usage: "walk forward over a date range",
				Flags: []cli.Flag{
					dateFlag("start", "first decision date in `YYYY-MM-DD` format. Defaults to one year before --end.", time.Time{}),
					dateFlag("end", "last date in `YYYY-MM-DD` format. Defaults to today.", model.Day(time.Now())),
					&cli.BoolFlag{Name: "context", Usage: "print the context of every action"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide the progress bar"},
					statsFlag(),
				},
				Action: backtestAction,
			},
			{
				Name:  "today",
				Usage: "advise on the latest session",
				Flags: []cli.Flag{
					dateFlag("date", "advise on the latest session on or before `YYYY-MM-DD`. Defaults to today.", time.Time{}),
					&cli.BoolFlag{Name: "notify", Usage: "also send the advice to Telegram"},
					statsFlag(),
				},
				Action: todayAction,
			},
			{
				Name:  "serve",
				Usage: "run the daily advice on a schedule and answer Telegram commands",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "run-on-start",
						Usage:   "run the daily task immediately",
						Sources: cli.EnvVars("RUN_ON_START"),
					},
				},
				Action: serveAction,
			},
			{
				Name:  "positions",
				Usage: "manage the recorded positions file",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "print the recorded positions",
						Action: listPositionsAction,
					},
					{
						Name:  "add",
						Usage: "record a position taken outside the advisor",
						Flags: []cli.Flag{
							&cli.TimestampFlag{
								Name:     "date",
								Usage:    "entry date in `YYYY-MM-DD` format",
								Required: true,
								Config:   cli.TimestampConfig{Layouts: []string{model.DateLayout}},
							},
							&cli.StringFlag{Name: "ticker", Required: true},
							&cli.FloatFlag{Name: "size", Required: true},
							&cli.FloatFlag{Name: "price", Required: true},
						},
						Action: addPositionAction,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
