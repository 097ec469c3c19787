package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dicom-metascan/internal/anonymize"
	"dicom-metascan/internal/dicom"
	"dicom-metascan/internal/dict"
	"dicom-metascan/internal/document"
	"dicom-metascan/internal/extract"
	"dicom-metascan/internal/identity"
	"dicom-metascan/internal/progress"
)

// progressFileName lives in the output directory so a wiped output
// tree also resets the resume state.
const progressFileName = ".progress.json"

// Config drives one extraction run.
type Config struct {
	InputDir  string
	OutputDir string

	Anonymize   bool
	Policy      anonymize.Policy
	MappingFile string
	Salt        string

	Workers     int
	Recursive   bool
	RetryFailed bool
	DryRun      bool

	Extract extract.Options
}

// Stats summarizes a finished run.
type Stats struct {
	Found      int
	Processed  int
	Skipped    int
	Failed     int
	Pseudonyms int
}

// Runner executes the extraction pipeline over a directory tree. Files
// are independent; only the pseudonym mapping is shared, so the run is
// parallel at the file level with a bounded worker count.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	runID  string

	extractor *extract.Extractor
	engine    *anonymize.Engine
}

// NewRunner validates the configuration and assembles the pipeline.
func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	info, err := os.Stat(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", cfg.InputDir)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		logger:    logger,
		runID:     uuid.NewString(),
		extractor: extract.New(dict.New(), cfg.Extract),
	}

	if cfg.Anonymize {
		mapper := identity.NewMapper(cfg.MappingFile, cfg.Salt, logger)
		engine, err := anonymize.NewEngine(cfg.Policy, mapper, cfg.Salt)
		if err != nil {
			return nil, err
		}
		r.engine = engine
	}

	return r, nil
}

// RunID identifies this run in logs and in the mapping file.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes every discovered file. Per-file failures are recorded
// in the error log and do not stop the run; a pseudonym collision
// aborts everything, since continuing would conflate patients.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	files, err := dicom.FindDicomFiles(r.cfg.InputDir, r.cfg.Recursive)
	if err != nil {
		return stats, fmt.Errorf("could not scan input directory: %w", err)
	}
	stats.Found = len(files)

	r.logger.Info("starting run",
		"run_id", r.runID,
		"input", r.cfg.InputDir,
		"output", r.cfg.OutputDir,
		"files", len(files),
		"workers", r.cfg.Workers,
		"anonymize", r.cfg.Anonymize,
		"dry_run", r.cfg.DryRun)

	if r.cfg.DryRun {
		for _, f := range files {
			r.logger.Info("would process", "path", f)
		}
		return stats, nil
	}

	logPath := filepath.Join(r.cfg.InputDir, progress.ErrorLogName)
	errorLog, err := progress.NewErrorLog(logPath)
	if err != nil {
		return stats, err
	}
	defer errorLog.Close()

	tracker := progress.NewTracker(filepath.Join(r.cfg.OutputDir, progressFileName), r.logger)
	if r.cfg.RetryFailed {
		tracker.ClearFailed()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	results := make(chan error, len(files))
	for _, file := range files {
		if tracker.IsProcessed(file) {
			stats.Skipped++
			continue
		}

		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := r.processFile(file, tracker)
			if err != nil {
				if errors.Is(err, identity.ErrPseudonymCollision) {
					return err // fatal, stops the group
				}
				r.logger.Warn("file failed", "path", file, "error", err)
				errorLog.Record(file, err.Error())
				tracker.MarkError(file, err.Error())
			}
			results <- err
			return nil
		})
	}

	groupErr := g.Wait()
	close(results)
	for err := range results {
		if err != nil {
			stats.Failed++
		} else {
			stats.Processed++
		}
	}

	if r.engine != nil {
		stats.Pseudonyms = r.engine.Mapper().Count()
	}

	r.logger.Info("run finished",
		"run_id", r.runID,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"errors_logged", errorLog.Count())

	if groupErr != nil {
		return stats, groupErr
	}
	return stats, nil
}

func (r *Runner) processFile(path string, tracker *progress.Tracker) error {
	doc, err := r.extractor.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("could not decode: %w", err)
	}

	rel, err := filepath.Rel(r.cfg.InputDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	outRoot := r.cfg.OutputDir
	if r.engine != nil {
		flat := doc.Flatten()
		anonID, method, err := r.engine.Mapper().AnonID(
			doc.PatientID,
			document.ValueOf(flat, "PatientName"),
			document.ValueOf(flat, "PatientBirthDate"),
		)
		if err != nil {
			return err
		}

		doc, err = r.engine.Anonymize(doc)
		if err != nil {
			return err
		}

		// The pseudonym names the patient directory so the anonymized
		// tree stays navigable without the original IDs; the source's
		// relative layout is mirrored beneath it.
		if anonID != "" {
			outRoot = filepath.Join(outRoot, anonID)
		}
		r.logger.Debug("anonymized", "path", path, "anon_id", anonID, "match", string(method))
	}

	outPath := document.OutputPath(outRoot, rel)
	if err := document.Write(outPath, doc); err != nil {
		return err
	}

	tracker.MarkSuccess(path, outPath)
	r.logger.Debug("processed", "path", path, "document", outPath)
	return nil
}
