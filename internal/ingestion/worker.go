package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// WorkerPool parses and loads multiple trade export files in
// parallel, one file per job.
type WorkerPool struct {
	workers  int
	parser   *TradeParser
	loader   *BulkLoader
	jobQueue chan Job
	wg       sync.WaitGroup
}

type Job struct {
	FilePath string
	Result   chan<- JobResult
}

type JobResult struct {
	FilePath     string
	RecordsCount int64
	Error        error
}

func NewWorkerPool(workers int, parser *TradeParser, loader *BulkLoader) *WorkerPool {
	return &WorkerPool{
		workers:  workers,
		parser:   parser,
		loader:   loader,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool) Submit(job Job) {
	wp.jobQueue <- job
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processFile(ctx, job.FilePath)
			job.Result <- result
		}
	}
}

func (wp *WorkerPool) processFile(ctx context.Context, filePath string) JobResult {

	file, err := os.Open(filePath)
	if err != nil {
		return JobResult{
			FilePath: filePath,
			Error:    fmt.Errorf("opening trade file: %w", err),
		}
	}
	defer file.Close()

	parseResult, err := wp.parser.Parse(ctx, file)
	if err != nil {
		return JobResult{
			FilePath: filePath,
			Error:    fmt.Errorf("parsing trade file: %w", err),
		}
	}

	count, err := wp.loader.LoadTradesConcurrent(ctx, parseResult.Trades)
	if err != nil {
		return JobResult{
			FilePath:     filePath,
			RecordsCount: count,
			Error:        fmt.Errorf("loading trades: %w", err),
		}
	}

	return JobResult{
		FilePath:     filePath,
		RecordsCount: count,
		Error:        nil,
	}
}
