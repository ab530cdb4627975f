// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/dungeonserver/models"
)

// GormPostgreSQL stores history through GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormGameRecord{},
		&models.GormSessionRecord{},
	)
}

func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, rec *models.GameRecord) error {
	return p.db.WithContext(ctx).Create(rec.ToGorm()).Error
}

func (p *GormPostgreSQL) SaveSessionRecord(ctx context.Context, rec *models.SessionRecord) error {
	return p.db.WithContext(ctx).Create(rec.ToGorm()).Error
}

func (p *GormPostgreSQL) GameRecord(ctx context.Context, gameID string) (*models.GameRecord, error) {
	var row models.GormGameRecord
	if err := p.db.WithContext(ctx).Where("game_id = ?", gameID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	rec := row.ToRecord()
	return &rec, nil
}

func (p *GormPostgreSQL) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	err := p.db.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.GameRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToRecord()
	}
	return out, nil
}

// Transaction runs fn in a database transaction.
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
