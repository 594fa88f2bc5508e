package database

import (
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes with a dedicated hint
const (
	pgInvalidPassword = "28P01"
	pgInvalidCatalog  = "3D000"
)

// ConnectionHint suggests what to check when err came from connecting to or
// migrating the database. It returns an empty string for a nil error.
func ConnectionHint(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidPassword:
			return "Authentication failed: verify DATABASE_URL or database.user/database.password and that the user can access the database"
		case pgInvalidCatalog:
			return "Database does not exist: create it first, e.g. createdb boilerplate"
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return "Connection refused: start PostgreSQL and check that it listens on the configured host and port"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "Database host not found: check database.host or the host in DATABASE_URL"
	}

	return "Database connection issue: check DATABASE_URL and that PostgreSQL is installed and running"
}
