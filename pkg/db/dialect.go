package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// Dialect picks the gorm dialector for the configured database type.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case TypePostgres, "":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case TypeSQLite:
		return sqlite.Open(sqliteDSN(cfg.Name)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// sqlitePragmas make a writer wait for the file lock instead of failing
// with SQLITE_BUSY.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func sqliteDSN(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		name = "orderdesk.db"
	case name == ":memory:", strings.Contains(name, "mode=memory"):
		return name
	case strings.HasPrefix(name, "file:"), strings.HasSuffix(name, ".db"):
	default:
		name += ".db"
	}
	if strings.Contains(name, "?") {
		return name + "&" + sqlitePragmas
	}
	return name + "?" + sqlitePragmas
}

func isSQLite(cfg Config) bool {
	return strings.EqualFold(strings.TrimSpace(cfg.Type), TypeSQLite)
}
