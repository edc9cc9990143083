package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haven-social/warden/models"
)

// SetupDatabase opens a gorm handle from a DATABASE_URL-style string:
// sqlite://path/to/file.db or postgres://...
func SetupDatabase(dburl string, maxConnections int) (*gorm.DB, error) {
	var dial gorm.Dialector

	openConns := maxConnections
	if strings.HasPrefix(dburl, "sqlite://") {
		sqliteSuffix := dburl[len("sqlite://"):]
		// ensure the directory exists, unless this is :memory:
		if !strings.Contains(sqliteSuffix, ":?") && sqliteSuffix != ":memory:" {
			os.MkdirAll(filepath.Dir(sqliteSuffix), os.ModePerm)
		}
		dial = sqlite.Open(sqliteSuffix)
		openConns = 1
	} else if strings.HasPrefix(dburl, "postgresql://") || strings.HasPrefix(dburl, "postgres://") {
		dial = postgres.Open(dburl)
	} else {
		return nil, fmt.Errorf("unsupported or unrecognized DATABASE_URL value")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}
	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(openConns)
	return db, nil
}

// Migrate creates or updates the warden tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ModerationCase{},
		&models.JoinRecord{},
		&models.ScheduledAction{},
		&models.Ticket{},
		&models.SecurityIncident{},
		&models.AutoModViolation{},
		&models.CommunitySettings{},
	)
}
