package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lab271/dmvoor/pkg/config"
)

// defaultSQLitePath is used when the sqlite driver is selected without an
// explicit path.
const defaultSQLitePath = "dmvoor-corpus.db"

// ErrRunNotFound is returned when a run id is not in the index.
var ErrRunNotFound = errors.New("run not found")

// Store provides persistence for the run index.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	DeleteRun(ctx context.Context, runID string) error
	ListWorkloads(ctx context.Context) ([]string, error)

	Rescan(ctx context.Context, roots []string) (*RescanResult, error)
}

// Ensure interface compliance.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.CorpusConfig
	db  *gorm.DB
}

// NewStore creates a run index Store backed by the configured driver.
func NewStore(log logrus.FieldLogger, cfg *config.CorpusConfig) Store {
	return &store{
		log: log.WithField("component", "corpus"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		path := s.cfg.SQLite.Path
		if path == "" {
			path = defaultSQLitePath
		}

		dialector = sqlite.Open(path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported corpus driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening corpus database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("running corpus migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Corpus database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// RecordRun inserts or updates a run record keyed by run_id.
func (s *store) RecordRun(ctx context.Context, run *Run) error {
	result := s.db.WithContext(ctx).
		Where("run_id = ?", run.RunID).
		Assign(run).
		FirstOrCreate(run)
	if result.Error != nil {
		return fmt.Errorf("recording run: %w", result.Error)
	}

	return nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := s.db.WithContext(ctx).Order("generated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// GetRun returns the run with the given run id.
func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

// DeleteRun removes the run with the given run id from the index. The files
// in its output directory are left alone.
func (s *store) DeleteRun(ctx context.Context, runID string) error {
	result := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&Run{})
	if result.Error != nil {
		return fmt.Errorf("deleting run: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// ListWorkloads returns the distinct workload ids present in the index.
func (s *store) ListWorkloads(ctx context.Context) ([]string, error) {
	var workloads []string

	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Distinct().
		Order("workload ASC").
		Pluck("workload", &workloads).Error; err != nil {
		return nil, fmt.Errorf("listing workloads: %w", err)
	}

	return workloads, nil
}
