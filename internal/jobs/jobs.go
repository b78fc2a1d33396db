package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"tweetminer/internal/analysis"
	"tweetminer/internal/collector"
	"tweetminer/internal/logging"
	"tweetminer/internal/metrics"
	"tweetminer/internal/model"
	"tweetminer/internal/persist"
	"tweetminer/internal/store/sqlitestore"
)

// RunIndex records finished runs.
type RunIndex interface {
	PutRun(ctx context.Context, r sqlitestore.Run) error
}

// SaveOpts controls whether and where a recent search result is written.
type SaveOpts struct {
	Save     bool
	Dir      string
	FileName string
}

// Outcome is what one collection run produced.
type Outcome struct {
	RunID  string
	Result model.CollectionResult
	// Path is empty when the result was not saved.
	Path string
}

// Runner ties collection, persistence, the run index and metrics together.
type Runner struct {
	Collector *collector.Collector
	Streamer  *collector.Streamer
	// Index may be nil.
	Index RunIndex
	NewID func() string
}

func (r *Runner) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// RunRecent fetches recent tweets, saves them when asked and indexes the run.
func (r *Runner) RunRecent(ctx context.Context, opts collector.RecentOpts, save SaveOpts) (Outcome, error) {
	start := time.Now()
	typ := string(model.CollectionRecent)
	res, err := r.Collector.FetchRecent(ctx, opts)
	if err != nil {
		metrics.ObserveCollection(typ, start, 0, err)
		return Outcome{}, err
	}
	out := Outcome{RunID: r.newID(), Result: res}
	if save.Save {
		path, err := persist.Save(res, opts.Count, save.Dir, save.FileName)
		if err != nil {
			metrics.ObserveCollection(typ, start, 0, err)
			return out, err
		}
		out.Path = path
	}
	metrics.ObserveCollection(typ, start, res.Count, nil)
	r.index(ctx, out)
	return out, nil
}

// RunStream collects from the filtered stream. The Streamer saves the
// result itself when opts.SaveResult is set.
func (r *Runner) RunStream(ctx context.Context, opts collector.StreamOpts) (Outcome, error) {
	if r.Streamer == nil {
		return Outcome{}, errors.New("jobs: no streamer configured")
	}
	start := time.Now()
	typ := string(model.CollectionStreaming)
	res, err := r.Streamer.Collect(ctx, opts)
	if err != nil {
		metrics.ObserveCollection(typ, start, 0, err)
		if res.Count > 0 {
			return Outcome{Result: res}, err
		}
		return Outcome{}, err
	}
	out := Outcome{RunID: r.newID(), Result: res, Path: r.Streamer.SavedPath()}
	metrics.ObserveCollection(typ, start, res.Count, nil)
	r.index(ctx, out)
	return out, nil
}

func (r *Runner) index(ctx context.Context, out Outcome) {
	fields := map[string]any{
		"run_id":  out.RunID,
		"type":    string(out.Result.CollectionType),
		"query":   out.Result.Query,
		"records": out.Result.Count,
		"path":    out.Path,
		"at":      out.Result.CollectedAt().Format(time.RFC3339),
	}
	logging.Info("collection_done", fields)
	if r.Index == nil {
		return
	}
	err := r.Index.PutRun(ctx, sqlitestore.Run{
		ID:             out.RunID,
		CollectionType: out.Result.CollectionType,
		Query:          out.Result.Query,
		Count:          out.Result.Count,
		Path:           out.Path,
		CollectedAt:    out.Result.Timestamp,
	})
	if err != nil {
		logging.Warn("run_index_failed", map[string]any{"run_id": out.RunID, "error": err.Error()})
	}
}

// RunAuthors resolves the authors of a saved result and writes the list
// to outPath.
func (r *Runner) RunAuthors(ctx context.Context, resultPath, outPath string) ([]model.AuthorInfo, error) {
	res, err := persist.Load(resultPath)
	if err != nil {
		return nil, err
	}
	authors, err := r.Collector.FetchAuthorsFor(ctx, res)
	if err != nil {
		if len(authors) > 0 {
			// keep what was fetched before the failure
			if serr := persist.SaveAuthors(outPath, authors); serr != nil {
				logging.Warn("authors_partial_save_failed", map[string]any{"error": serr.Error()})
			}
		}
		return authors, fmt.Errorf("fetch authors: %w", err)
	}
	if err := persist.SaveAuthors(outPath, authors); err != nil {
		return authors, err
	}
	logging.Info("authors_saved", map[string]any{"path": outPath, "authors": len(authors)})
	return authors, nil
}

// Analyze loads a result and, when authorsPath exists, its author list,
// then runs the analysis.
func Analyze(resultPath, authorsPath string, opts analysis.Options) (analysis.Report, error) {
	res, err := persist.Load(resultPath)
	if err != nil {
		return analysis.Report{}, err
	}
	var authors []model.AuthorInfo
	if authorsPath != "" {
		authors, err = persist.LoadAuthors(authorsPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return analysis.Report{}, err
		}
	}
	return analysis.Run(res, authors, opts), nil
}
