package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lab271/dmvoor/pkg/export"
)

// rescanConcurrency bounds how many output directories are ingested in
// parallel.
const rescanConcurrency = 4

// RescanResult summarizes one rescan pass.
type RescanResult struct {
	Candidates int `json:"candidates"`
	Indexed    int `json:"indexed"`
	Failed     int `json:"failed"`
}

// Rescan walks the given roots for directories holding a generation summary
// and upserts each one into the index. Directories that fail to decode are
// logged and skipped.
func (s *store) Rescan(ctx context.Context, roots []string) (*RescanResult, error) {
	var candidates []string

	for _, root := range roots {
		found, err := findSummaryDirs(root)
		if err != nil {
			s.log.WithError(err).WithField("root", root).
				Warn("Skipping unreadable corpus root")

			continue
		}

		candidates = append(candidates, found...)
	}

	result := &RescanResult{Candidates: len(candidates)}
	if len(candidates) == 0 {
		s.log.Info("Rescan found no output directories")

		return result, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(rescanConcurrency)

	var (
		indexed atomic.Int64
		failed  atomic.Int64
		dbMu    sync.Mutex // serializes upserts to avoid SQLite contention
	)

	for _, dir := range candidates {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			run, err := runFromDir(dir)
			if err != nil {
				s.log.WithError(err).WithField("dir", dir).
					Warn("Failed to read run directory")
				failed.Add(1)

				return nil
			}

			dbMu.Lock()
			defer dbMu.Unlock()

			if err := s.RecordRun(gCtx, run); err != nil {
				s.log.WithError(err).WithField("dir", dir).
					Warn("Failed to record run")
				failed.Add(1)

				return nil
			}

			indexed.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rescanning corpus roots: %w", err)
	}

	result.Indexed = int(indexed.Load())
	result.Failed = int(failed.Load())

	s.log.WithFields(logrus.Fields{
		"candidates": result.Candidates,
		"indexed":    result.Indexed,
		"failed":     result.Failed,
	}).Info("Rescan completed")

	return result, nil
}

// findSummaryDirs collects every directory under root that carries a
// generation summary. Matched directories are not descended into.
func findSummaryDirs(root string) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !d.IsDir() {
			return nil
		}

		if _, err := os.Stat(filepath.Join(path, export.SummaryFilename)); err == nil {
			dirs = append(dirs, path)

			return fs.SkipDir
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return dirs, nil
}

// runFromDir decodes the generation summary in dir into an index record.
// Decoding is weakly typed so hand-edited summaries still ingest.
func runFromDir(dir string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, export.SummaryFilename))
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}

	var summary export.Summary

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		Result:           &summary,
	})
	if err != nil {
		return nil, fmt.Errorf("building summary decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}

	return RunFromSummary(&summary, dir)
}
