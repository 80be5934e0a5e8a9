package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/metrics"
	"fcc-shorturl/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	backend      = "sqlite"
	sequenceName = "urls"
)

// urlModel is the row layout of the urls table
type urlModel struct {
	ID          uint      `gorm:"primaryKey"`
	OriginalURL string    `gorm:"column:original_url;type:text;not null;uniqueIndex:idx_urls_original_url"`
	ShortID     int64     `gorm:"column:short_id;not null;uniqueIndex:idx_urls_short_id;check:short_id >= 0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (urlModel) TableName() string { return "urls" }

// sequenceModel backs NextShortID; one row per named sequence
type sequenceModel struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}

func (sequenceModel) TableName() string { return "short_id_sequences" }

type urlRepository struct {
	db *gorm.DB
}

// NewURLRepository wraps an already migrated database, see NewSQLite.
func NewURLRepository(db *gorm.DB) repository.URLRepository {
	return &urlRepository{db: db}
}

// NewSQLite opens (or creates) the database file and migrates the schema.
func NewSQLite(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database with path %s error: %w", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	// SQLite has a single writer; one connection serialises writes instead of failing with SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&urlModel{}, &sequenceModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating sql: %w", err)
	}

	return db, nil
}

func (r *urlRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.URLRecord, bool, error) {
	return r.findOne(ctx, "find_by_original_url", "original_url = ?", originalURL)
}

func (r *urlRepository) FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error) {
	return r.findOne(ctx, "find_by_short_id", "short_id = ?", shortID)
}

func (r *urlRepository) findOne(ctx context.Context, op, cond string, arg any) (*domain.URLRecord, bool, error) {
	start := time.Now()

	var rows []urlModel
	res := r.db.WithContext(ctx).Where(cond, arg).Limit(1).Find(&rows)
	if res.Error != nil {
		metrics.ObserveStore(backend, op, start, true)
		return nil, false, fmt.Errorf("query url: %w", res.Error)
	}
	metrics.ObserveStore(backend, op, start, false)

	if len(rows) == 0 {
		return nil, false, nil
	}
	return domain.NewURLRecord(rows[0].OriginalURL, rows[0].ShortID), true, nil
}

func (r *urlRepository) Insert(ctx context.Context, record *domain.URLRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	db := r.db.WithContext(ctx)

	err := db.Create(&urlModel{OriginalURL: record.OriginalURL, ShortID: record.ShortID}).Error
	if err == nil {
		metrics.ObserveStore(backend, "insert", start, false)
		return nil
	}

	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		metrics.ObserveStore(backend, "insert", start, true)
		return fmt.Errorf("insert url: %w", err)
	}
	metrics.ObserveStore(backend, "insert", start, false)

	// The translated error does not say which index fired; the URL index wins ties
	var count int64
	if err := db.Model(&urlModel{}).Where("original_url = ?", record.OriginalURL).Count(&count).Error; err != nil {
		return fmt.Errorf("classify duplicate: %w", err)
	}
	if count > 0 {
		return repository.ErrDuplicateOriginalURL
	}
	return repository.ErrDuplicateShortID
}

func (r *urlRepository) Update(ctx context.Context, record *domain.URLRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	res := r.db.WithContext(ctx).
		Model(&urlModel{}).
		Where("original_url = ?", record.OriginalURL).
		Update("short_id", record.ShortID)

	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			metrics.ObserveStore(backend, "update", start, false)
			return repository.ErrDuplicateShortID
		}
		metrics.ObserveStore(backend, "update", start, true)
		return fmt.Errorf("update url: %w", res.Error)
	}
	metrics.ObserveStore(backend, "update", start, false)

	if res.RowsAffected == 0 {
		return repository.ErrRecordNotFound
	}
	return nil
}

// NextShortID advances the counter row and skips values already taken by explicit inserts.
func (r *urlRepository) NextShortID(ctx context.Context) (int64, error) {
	start := time.Now()

	var id int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := sequenceModel{}
		if err := tx.Where(sequenceModel{Name: sequenceName}).
			Attrs(sequenceModel{Value: 1}).
			FirstOrCreate(&seq).Error; err != nil {
			return err
		}

		next := seq.Value
		for {
			if next == math.MaxInt64 {
				return repository.ErrSequenceExhausted
			}
			var taken int64
			if err := tx.Model(&urlModel{}).Where("short_id = ?", next).Count(&taken).Error; err != nil {
				return err
			}
			if taken == 0 {
				break
			}
			next++
		}

		if err := tx.Model(&sequenceModel{}).
			Where("name = ?", sequenceName).
			Update("value", next+1).Error; err != nil {
			return err
		}

		id = next
		return nil
	})
	if err != nil {
		metrics.ObserveStore(backend, "next_short_id", start, true)
		return 0, fmt.Errorf("advance short id sequence: %w", err)
	}

	metrics.ObserveStore(backend, "next_short_id", start, false)
	return id, nil
}

func (r *urlRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *urlRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
