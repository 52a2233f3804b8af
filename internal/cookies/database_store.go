package cookies

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseStore persists the cookie jar using GORM so a session survives
// process restarts, the way a browser profile does.
type DatabaseStore struct {
	db          *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (store *DatabaseStore) Driver() string {
	return store.driverLabel
}

type cookieRecord struct {
	Name        string `gorm:"column:name;primaryKey"`
	Path        string `gorm:"column:path;primaryKey"`
	Domain      string `gorm:"column:domain;primaryKey"`
	Value       string `gorm:"column:value;not null"`
	ExpiresUnix int64  `gorm:"column:expires_unix;not null;default:0"`
	SameSite    int    `gorm:"column:same_site;not null;default:0"`
	Secure      bool   `gorm:"column:secure;not null;default:false"`
}

func (cookieRecord) TableName() string {
	return "browser_cookies"
}

// NewDatabaseStore opens databaseURL (postgres:// or sqlite://) and migrates
// the cookie table.
func NewDatabaseStore(ctx context.Context, databaseURL string) (*DatabaseStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("cookie_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openErr != nil {
		return nil, fmt.Errorf("cookie_store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&cookieRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("cookie_store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DatabaseStore{
		db:          gormDB,
		driverLabel: driverLabel,
	}, nil
}

// Load reads every persisted cookie.
func (store *DatabaseStore) Load(ctx context.Context) ([]Record, error) {
	var rows []cookieRecord
	if err := store.db.WithContext(ctx).Order("name, path, domain").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cookie_store.load.%s: %w", store.driverLabel, err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record := Record{
			Name:     row.Name,
			Value:    row.Value,
			Path:     row.Path,
			Domain:   row.Domain,
			SameSite: http.SameSite(row.SameSite),
			Secure:   row.Secure,
		}
		if row.ExpiresUnix != 0 {
			record.ExpiresAt = time.Unix(row.ExpiresUnix, 0).UTC()
		}
		records = append(records, record)
	}
	return records, nil
}

// Save replaces the persisted jar inside one transaction.
func (store *DatabaseStore) Save(ctx context.Context, records []Record) error {
	rows := make([]cookieRecord, 0, len(records))
	for _, record := range records {
		row := cookieRecord{
			Name:     record.Name,
			Path:     record.Path,
			Domain:   record.Domain,
			Value:    record.Value,
			SameSite: int(record.SameSite),
			Secure:   record.Secure,
		}
		if !record.ExpiresAt.IsZero() {
			row.ExpiresUnix = record.ExpiresAt.Unix()
		}
		rows = append(rows, row)
	}
	transactionErr := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&cookieRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if transactionErr != nil {
		return fmt.Errorf("cookie_store.save.%s: %w", store.driverLabel, transactionErr)
	}
	return nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("cookie_store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("cookie_store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("cookie_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("cookie_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
