// Package report renders an analysis.Report as an HTML page of charts.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"tweetminer/internal/analysis"
	"tweetminer/internal/logging"
)

func title(t, sub string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{Title: t, Subtitle: sub})
}

var theme = charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros})

// WordCloud plots keyword frequencies.
func WordCloud(rep analysis.Report) *charts.WordCloud {
	wc := charts.NewWordCloud()
	wc.SetGlobalOptions(title("Keywords", rep.Query), theme)
	items := make([]opts.WordCloudData, 0, len(rep.WordCloud))
	for _, e := range rep.WordCloud {
		items = append(items, opts.WordCloudData{Name: e.Key, Value: e.Count})
	}
	wc.AddSeries("keywords", items)
	return wc
}

// EntryBar plots counted entries as bars, in the order given.
func EntryBar(chartTitle, series string, entries []analysis.Entry) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(title(chartTitle, ""), theme)
	x := make([]string, 0, len(entries))
	y := make([]opts.BarData, 0, len(entries))
	for _, e := range entries {
		x = append(x, e.Key)
		y = append(y, opts.BarData{Value: e.Count})
	}
	bar.SetXAxis(x).AddSeries(series, y)
	return bar
}

// HistogramBar plots histogram bins with their range as the label.
func HistogramBar(chartTitle string, bins []analysis.Bin) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(title(chartTitle, "score"), theme)
	x := make([]string, 0, len(bins))
	y := make([]opts.BarData, 0, len(bins))
	for _, b := range bins {
		x = append(x, fmt.Sprintf("%.2f..%.2f", b.Lo, b.Hi))
		y = append(y, opts.BarData{Value: b.Count})
	}
	bar.SetXAxis(x).AddSeries("tweet count", y)
	return bar
}

// Page assembles every chart for rep.
func Page(rep analysis.Report) *components.Page {
	page := components.NewPage()
	page.SetPageTitle("tweetminer: " + rep.Query)
	page.AddCharts(
		WordCloud(rep),
		EntryBar("Tweets per day", "tweets", rep.Days),
		EntryBar("Top hashtags", "hashtags", rep.Hashtags),
		HistogramBar("Polarity", rep.Sentiment.PolarityHist),
		HistogramBar("Subjectivity", rep.Sentiment.SubjectivityHist),
	)
	return page
}

func Render(w io.Writer, rep analysis.Report) error {
	return Page(rep).Render(w)
}

// WriteFile renders rep to an HTML file.
func WriteFile(path string, rep analysis.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	return f.Close()
}

// Loader produces a fresh report for each request.
type Loader func() (analysis.Report, error)

// Handler serves the chart page on / and the raw report on /report.json.
func Handler(load Loader) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		rep, err := load()
		if err != nil {
			logging.Error("dashboard_load_failed", map[string]any{"error": err.Error()})
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := Render(w, rep); err != nil {
			logging.Error("dashboard_render_failed", map[string]any{"error": err.Error()})
		}
	})
	mux.HandleFunc("/report.json", func(w http.ResponseWriter, r *http.Request) {
		rep, err := load()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rep)
	})
	return mux
}

// Serve runs h on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.Info("dashboard_listening", map[string]any{"addr": addr})
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
