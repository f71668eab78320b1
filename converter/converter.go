package converter

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ddsconv/contracts"
	"ddsconv/files_manager"

	"golang.org/x/sync/errgroup"
)

type ConversionRequest = contracts.ConversionRequest
type RunSummary = contracts.RunSummary

type convertTask struct {
	srcPath string
	dstPath string
	index   int
}

type convertResult struct {
	srcPath string
	dstPath string
	index   int
}

// Converter runs batch conversions. It is safe for concurrent use, but only
// one Run executes at a time; overlapping calls fail with
// contracts.ErrRunInProgress.
type Converter struct {
	logger  *slog.Logger
	running atomic.Bool
}

func New(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{logger: logger}
}

var _ contracts.Converter = (*Converter)(nil)

// Run converts every matching file of request.SourceDir into
// request.OutputDir. The first failure aborts the batch and is returned;
// files converted before it stay on disk but are not reported.
func (c *Converter) Run(ctx context.Context, request ConversionRequest) (*RunSummary, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, &contracts.Error{Kind: contracts.KindBusy, Op: "run", Message: "refusing to start", Cause: contracts.ErrRunInProgress}
	}
	defer c.running.Store(false)

	startTime := time.Now()
	log := c.logger.With("mode", request.Direction.String(), "input", request.SourceDir, "output", request.OutputDir)

	if err := files_manager.CheckSourceDir(request.SourceDir); err != nil {
		log.Error("source check failed", "error", err)
		return nil, err
	}
	if err := files_manager.EnsureOutputDir(request.OutputDir); err != nil {
		log.Error("output directory failed", "error", err)
		return nil, err
	}

	convert := ConvertDDSToPNG
	if request.Direction == contracts.PNGToDDS {
		convert = ConvertPNGToDDS
	}

	var results []convertResult
	var err error
	if request.Workers <= 1 {
		results, err = c.runSequential(ctx, request, convert)
	} else {
		results, err = c.runParallel(ctx, request, convert)
	}
	if err != nil {
		log.Error("conversion failed", "error", err)
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	summary := &RunSummary{Direction: request.Direction, Outputs: make([]string, len(results))}
	for i, r := range results {
		summary.Outputs[i] = r.dstPath
	}

	switch {
	case request.ContactSheet == "":
	case len(results) == 0:
		log.Warn("no files converted, contact sheet skipped", "path", request.ContactSheet)
	default:
		sheet := make([]string, len(results))
		for i, r := range results {
			if request.Direction == contracts.PNGToDDS {
				sheet[i] = r.srcPath
			} else {
				sheet[i] = r.dstPath
			}
		}
		if err := WriteContactSheet(sheet, request.ContactSheet); err != nil {
			log.Error("contact sheet failed", "error", err)
			return nil, err
		}
		log.Debug("contact sheet written", "path", request.ContactSheet, "pages", len(sheet))
	}

	log.Info("conversion completed", "files", len(results), "elapsed", time.Since(startTime).Round(time.Millisecond))
	return summary, nil
}

type convertFunc func(srcPath, dstPath string, opts ConversionOptions) error

func (c *Converter) tasks(request ConversionRequest) func(yield func(convertTask, error) bool) {
	ext := request.Direction.TargetExt()
	return func(yield func(convertTask, error) bool) {
		i := 0
		for srcPath, err := range files_manager.ScanDir(request.SourceDir, request.Direction.SourceExt()) {
			if err != nil {
				yield(convertTask{}, err)
				return
			}
			task := convertTask{srcPath: srcPath, dstPath: files_manager.OutputPath(request.OutputDir, srcPath, ext), index: i}
			i++
			if !yield(task, nil) {
				return
			}
		}
	}
}

func (c *Converter) convertOne(task convertTask, request ConversionRequest, convert convertFunc) (convertResult, error) {
	fileStart := time.Now()
	if err := convert(task.srcPath, task.dstPath, request.Options); err != nil {
		return convertResult{}, err
	}
	c.logger.Debug("converted", "src", task.srcPath, "dst", task.dstPath, "elapsed", time.Since(fileStart).Round(time.Microsecond))
	return convertResult{srcPath: task.srcPath, dstPath: task.dstPath, index: task.index}, nil
}

func (c *Converter) runSequential(ctx context.Context, request ConversionRequest, convert convertFunc) ([]convertResult, error) {
	var results []convertResult
	for task, err := range c.tasks(request) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, contracts.Wrap(contracts.KindUnknown, "run", "conversion cancelled", err)
		}
		result, err := c.convertOne(task, request, convert)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// runParallel converts up to request.Workers files at once. The first error
// cancels the group so no further files are started.
func (c *Converter) runParallel(ctx context.Context, request ConversionRequest, convert convertFunc) ([]convertResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(request.Workers)

	var mu sync.Mutex
	var results []convertResult
	var scanErr error

	for task, err := range c.tasks(request) {
		if err != nil {
			scanErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := c.convertOne(task, request, convert)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	if err := ctx.Err(); err != nil {
		return nil, contracts.Wrap(contracts.KindUnknown, "run", "conversion cancelled", err)
	}
	return results, nil
}
