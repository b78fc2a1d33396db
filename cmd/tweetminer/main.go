package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"tweetminer/internal/analysis"
	"tweetminer/internal/cmdlog"
	"tweetminer/internal/collector"
	"tweetminer/internal/config"
	"tweetminer/internal/jobs"
	"tweetminer/internal/logging"
	"tweetminer/internal/metrics"
	"tweetminer/internal/model"
	"tweetminer/internal/report"
	"tweetminer/internal/store/sqlitestore"
	"tweetminer/internal/theme"
	"tweetminer/internal/util"
	"tweetminer/internal/xclient"
)

const defaultConfigPath = "./tweetminer.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var run func([]string) error
	switch cmd {
	case "init":
		run = cmdInit
	case "recent":
		run = cmdRecent
	case "stream":
		run = cmdStream
	case "authors":
		run = cmdAuthors
	case "analyze":
		run = cmdAnalyze
	case "dashboard":
		run = cmdDashboard
	case "runs":
		run = cmdRuns
	default:
		printHelp()
		return
	}
	if err := cmdlog.Run(cmd, func() error { return run(os.Args[2:]) }); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: tweetminer <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./tweetminer.yaml")
	fmt.Println("  recent      Collect tweets from the last 7 days by query")
	fmt.Println("  stream      Collect live tweets matching a filtered-stream rule")
	fmt.Println("  authors     Fetch author info for a saved result")
	fmt.Println("  analyze     Word, hashtag, engagement and sentiment analysis")
	fmt.Println("  dashboard   Serve the analysis charts over HTTP")
	fmt.Println("  runs        List indexed collection runs")
}

// app holds what every collecting command needs.
type app struct {
	cfg    config.Config
	db     *sqlitestore.DB
	runner *jobs.Runner
}

func loadConfig(path string) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		logging.Warn("dotenv_failed", map[string]any{"error": err.Error()})
	}
	return config.LoadOrDefault(path)
}

func clientOptions(cfg config.Config) xclient.Options {
	return xclient.Options{
		Mode:        cfg.API.Mode,
		BaseURL:     cfg.API.BaseURL,
		RPS:         cfg.API.RPS,
		Burst:       cfg.API.Burst,
		MaxAttempts: cfg.API.MaxAttempts,
		BaseBackoff: time.Duration(cfg.API.BaseBackoffMS) * time.Millisecond,
		Timeout:     time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}
}

func openApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	metrics.StartServer(cfg.Metrics.Addr)
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	opts := clientOptions(cfg)
	// renewed clients share one request budget
	opts.Limiter = xclient.NewLimiter(opts.RPS, opts.Burst)
	factory := func() (xclient.XClient, error) {
		return xclient.NewClient(cfg.Credentials.BearerToken, opts)
	}
	// the stream keeps one client for its whole run
	streamClient, err := factory()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	col := collector.New(factory,
		collector.WithAuthorCache(db),
		collector.WithRateLimitWait(cfg.Authors.Wait()),
		collector.WithRateLimitHook(func(id string, wait time.Duration) {
			fmt.Printf("rate limited on author %s, sleeping %s\n", id, wait)
			payload := map[string]any{"author_id": id, "wait": wait.String()}
			if err := db.PutEvent(context.Background(), time.Now(), "rate_limited", payload); err != nil {
				logging.Warn("event_write_failed", map[string]any{"error": err.Error()})
			}
		}),
	)
	return &app{
		cfg: cfg,
		db:  db,
		runner: &jobs.Runner{
			Collector: col,
			Streamer:  collector.NewStreamer(streamClient, os.Stdout),
			Index:     db,
		},
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseTime accepts RFC3339 or a local "2006-01-02 15:04:05" timestamp.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q: want RFC3339 or YYYY-MM-DD HH:MM:SS", s)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfigPath, "path to write config")
	_ = fs.Parse(args)
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdRecent(args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	query := fs.String("query", "", "search query, e.g. '\"openai\" -is:retweet lang:en'")
	count := fs.Int("count", 0, "number of tweets to collect (default from config)")
	start := fs.String("start", "", "window start, RFC3339 or YYYY-MM-DD HH:MM:SS")
	end := fs.String("end", "", "window end, RFC3339 or YYYY-MM-DD HH:MM:SS")
	dir := fs.String("dir", "", "directory for the result file")
	file := fs.String("file", "", "result file name, must end in .json")
	noSave := fs.Bool("no-save", false, "do not write the result to disk")
	_ = fs.Parse(args)

	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.db.Close()

	st, err := parseTime(*start)
	if err != nil {
		return err
	}
	et, err := parseTime(*end)
	if err != nil {
		return err
	}
	if err := collector.ValidateWindow(st, et, time.Now()); err != nil {
		return err
	}
	n := *count
	if n <= 0 {
		n = a.cfg.Collection.Count
	}
	saveDir := *dir
	if saveDir == "" {
		saveDir = a.cfg.Collection.SaveDir
	}

	ctx, cancel := signalContext()
	defer cancel()
	out, err := a.runner.RunRecent(ctx,
		collector.RecentOpts{Query: *query, Count: n, StartTime: st, EndTime: et},
		jobs.SaveOpts{Save: a.cfg.Collection.SaveResult && !*noSave, Dir: saveDir, FileName: *file},
	)
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d tweets for %q\n", out.Result.Count, out.Result.Query)
	if out.Path != "" {
		fmt.Println("Saved to:", out.Path)
	}
	return nil
}

func cmdStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	query := fs.String("query", "", "filtered-stream rule value")
	count := fs.Int("count", 0, "number of tweets to collect (default from config)")
	quiet := fs.Bool("quiet", false, "do not print each received tweet")
	dir := fs.String("dir", "", "directory for the result file")
	file := fs.String("file", "", "result file name, must end in .json")
	noSave := fs.Bool("no-save", false, "do not write the result to disk")
	_ = fs.Parse(args)

	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.db.Close()

	n := *count
	if n <= 0 {
		n = a.cfg.Collection.Count
	}
	saveDir := *dir
	if saveDir == "" {
		saveDir = a.cfg.Collection.SaveDir
	}
	ctx, cancel := signalContext()
	defer cancel()
	out, err := a.runner.RunStream(ctx, collector.StreamOpts{
		Query:        *query,
		Count:        n,
		ShowProgress: a.cfg.Collection.ShowProgress && !*quiet,
		SaveResult:   a.cfg.Collection.SaveResult && !*noSave,
		SaveDir:      saveDir,
		FileName:     *file,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d streamed tweets for %q\n", out.Result.Count, out.Result.Query)
	if out.Path != "" {
		fmt.Println("Saved to:", out.Path)
	}
	return nil
}

func cmdAuthors(args []string) error {
	fs := flag.NewFlagSet("authors", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	in := fs.String("in", "", "saved result file")
	outPath := fs.String("out", "", "author list file (default from config)")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.db.Close()
	target := *outPath
	if target == "" {
		target = a.cfg.Authors.OutputFile
	}
	ctx, cancel := signalContext()
	defer cancel()
	authors, err := a.runner.RunAuthors(ctx, *in, target)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d authors into %s\n", len(authors), target)
	return nil
}

func analysisOptions(cfg config.Config, topN int) analysis.Options {
	if topN <= 0 {
		topN = cfg.Analysis.TopN
	}
	return analysis.Options{TopN: topN, Bins: cfg.Analysis.Bins, ExtraStopwords: cfg.Analysis.ExtraStopwords}
}

func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	in := fs.String("in", "", "saved result file")
	authorsPath := fs.String("authors", "", "author list file (default from config)")
	topN := fs.Int("top", 0, "entries per ranking (default from config)")
	html := fs.String("report", "", "HTML chart report path (default from config, '-' to skip)")
	asJSON := fs.Bool("json", false, "print the full report as JSON")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	ap := *authorsPath
	if ap == "" {
		ap = cfg.Authors.OutputFile
	}
	rep, err := jobs.Analyze(*in, ap, analysisOptions(cfg, *topN))
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(rep)

	target := *html
	if target == "" {
		target = cfg.Analysis.ReportFile
	}
	if target != "" && target != "-" {
		if err := report.WriteFile(target, rep); err != nil {
			return err
		}
		fmt.Println("Chart report written to:", target)
	}
	return nil
}

func printReport(rep analysis.Report) {
	fmt.Printf("Query: %s (%s), %d tweets, %d authors\n", rep.Query, rep.CollectionType, rep.Tweets, rep.UniqueAuthors)
	section := func(name string, entries []analysis.Entry) {
		fmt.Println(name + ":")
		for _, e := range entries {
			fmt.Printf("  %-30s %d\n", e.Key, e.Count)
		}
	}
	section("Top words", rep.TopWords)
	section("Top keywords", rep.TopKeywords)
	section("Top hashtags", rep.Hashtags)
	section("Top mentions", rep.Mentions)
	section("Top sources", rep.Sources)
	section("Tweets per day", rep.Days)
	fmt.Println("Most engaged:")
	for _, r := range rep.TopEngaged {
		fmt.Printf("  %6d  %s\n", r.Engagement, truncate(r.Text, 80))
	}
	if len(rep.TopInfluencers) > 0 {
		fmt.Println("Top influencers:")
		for _, au := range rep.TopInfluencers {
			fmt.Printf("  %8d  @%s\n", au.Influence, au.Username)
		}
	}
	s := rep.Sentiment
	fmt.Printf("Sentiment: mean polarity %.3f, mean subjectivity %.3f\n", s.MeanPolarity, s.MeanSubjectivity)
	if s.MostNegative != nil {
		fmt.Printf("  most negative (%.2f): %s\n", s.MostNegative.Polarity, truncate(s.MostNegative.Text, 80))
	}
	if s.MostPositive != nil {
		fmt.Printf("  most positive (%.2f): %s\n", s.MostPositive.Polarity, truncate(s.MostPositive.Text, 80))
	}
}

func truncate(s string, n int) string {
	return util.Truncate(util.NormalizeWhitespace(s), n)
}

func cmdDashboard(args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	in := fs.String("in", "", "saved result file")
	authorsPath := fs.String("authors", "", "author list file (default from config)")
	addr := fs.String("addr", ":8080", "listen address")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	ap := *authorsPath
	if ap == "" {
		ap = cfg.Authors.OutputFile
	}
	opts := analysisOptions(cfg, 0)
	ctx, cancel := signalContext()
	defer cancel()
	fmt.Printf("Dashboard on http://%s\n", *addr)
	return report.Serve(ctx, *addr, report.Handler(func() (analysis.Report, error) {
		return jobs.Analyze(*in, ap, opts)
	}))
}

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	limit := fs.Int("limit", 20, "max runs to list, 0 for all")
	_ = fs.Parse(args)
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	runs, err := db.ListRuns(context.Background(), *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tQUERY\tCOUNT\tCOLLECTED\tPATH")
	for _, r := range runs {
		at := model.EpochTime(r.CollectedAt).Local().Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.CollectionType, r.Query, r.Count, at, r.Path)
	}
	return tw.Flush()
}
