package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationErrors(t *testing.T) {
	cause := errors.New("relation does not exist")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "Ledger",
			err:      &LedgerError{Op: "create", Cause: cause},
			sentinel: ErrLedger,
			message:  "ledger create failed: relation does not exist",
		},
		{
			name:     "Discovery with file",
			err:      &DiscoveryError{File: "abc.sql", Reason: "name must match <version>_<name>.sql"},
			sentinel: ErrDiscovery,
			message:  "migration discovery: abc.sql: name must match <version>_<name>.sql",
		},
		{
			name:     "Discovery with cause",
			err:      &DiscoveryError{File: "migrations", Reason: "cannot list migrations directory", Cause: cause},
			sentinel: ErrDiscovery,
			message:  "migration discovery: migrations: cannot list migrations directory: relation does not exist",
		},
		{
			name:     "Execution",
			err:      &MigrationExecutionError{Version: 3, Name: "add_email", Cause: cause},
			sentinel: ErrMigrationExecution,
			message:  "migration 3 (add_email) failed: relation does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.True(t, errors.Is(tt.err, tt.sentinel))

			wrapped := fmt.Errorf("migrate: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}

	assert.True(t, errors.Is(&LedgerError{Op: "read", Cause: cause}, cause))
	assert.True(t, errors.Is(&MigrationExecutionError{Version: 1, Cause: cause}, cause))
	assert.Equal(t, "ledger drop failed", (&LedgerError{Op: "drop"}).Error())
}

func TestMigrationErrorPredicates(t *testing.T) {
	ledger := &LedgerError{Op: "create"}
	discovery := &DiscoveryError{Reason: "bad"}
	execution := &MigrationExecutionError{Version: 1, Name: "init", Cause: errors.New("syntax error")}

	assert.True(t, IsLedgerError(ledger))
	assert.False(t, IsLedgerError(discovery))
	assert.True(t, IsDiscoveryError(discovery))
	assert.False(t, IsDiscoveryError(execution))
	assert.True(t, IsMigrationExecutionError(execution))
	assert.False(t, IsMigrationExecutionError(ledger))

	var execErr *MigrationExecutionError
	assert.True(t, errors.As(fmt.Errorf("run: %w", execution), &execErr))
	assert.Equal(t, int64(1), execErr.Version)
}
