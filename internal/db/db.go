package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nanum/internal/model"
)

// Open returns a connected GORM DB instance for the given driver
// ("postgres" or "mysql").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "postgresql", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Config is the GORM configuration shared by the server, the seeder and tests.
// TranslateError maps driver unique violations onto gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// Models lists every table owned by the service. Credentials are only
// needed when the local credential store is in use.
func Models(withCredentials bool) []interface{} {
	models := []interface{}{
		&model.User{},
		&model.EmailVerification{},
		&model.BoardCategory{},
	}
	if withCredentials {
		models = append(models, &model.Credential{})
	}
	return models
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB, withCredentials bool) error {
	if err := db.AutoMigrate(Models(withCredentials)...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table owned by the service.
func Reset(db *gorm.DB) error {
	for _, table := range Models(true) {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
