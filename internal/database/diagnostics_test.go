package database

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConnectionHint(t *testing.T) {
	refused := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "Nil",
			err:      nil,
			contains: "",
		},
		{
			name:     "Bad password",
			err:      fmt.Errorf("failed to connect: %w", &pgconn.PgError{Code: "28P01"}),
			contains: "Authentication failed",
		},
		{
			name:     "Missing database",
			err:      &LedgerError{Op: "create", Cause: &pgconn.PgError{Code: "3D000"}},
			contains: "Database does not exist",
		},
		{
			name:     "Connection refused",
			err:      fmt.Errorf("failed to connect to database after 5 attempts: %w", refused),
			contains: "Connection refused",
		},
		{
			name:     "Unknown host",
			err:      &net.DNSError{Err: "no such host", Name: "db.invalid"},
			contains: "Database host not found",
		},
		{
			name:     "Other postgres error",
			err:      &pgconn.PgError{Code: "42601"},
			contains: "Database connection issue",
		},
		{
			name:     "Generic",
			err:      errors.New("boom"),
			contains: "Database connection issue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := ConnectionHint(tt.err)
			if tt.contains == "" {
				assert.Empty(t, hint)
				return
			}
			assert.Contains(t, hint, tt.contains)
		})
	}
}
