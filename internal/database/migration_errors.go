package database

import (
	"errors"
	"fmt"
)

// Migration error kinds. Every error returned by MigrationRunner matches
// exactly one of these through errors.Is.
var (
	ErrLedger             = errors.New("migration ledger error")
	ErrDiscovery          = errors.New("migration discovery error")
	ErrMigrationExecution = errors.New("migration execution error")
)

// LedgerError reports a failure to create, repair or read the ledger table
type LedgerError struct {
	Op    string
	Cause error
}

func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("ledger %s failed", e.Op)
}

func (e *LedgerError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrLedger}
	}
	return []error{ErrLedger, e.Cause}
}

// DiscoveryError reports a migration artifact that cannot be turned into a definition
type DiscoveryError struct {
	File   string
	Reason string
	Cause  error
}

func (e *DiscoveryError) Error() string {
	msg := e.Reason
	if e.File != "" {
		msg = fmt.Sprintf("%s: %s", e.File, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("migration discovery: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("migration discovery: %s", msg)
}

func (e *DiscoveryError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDiscovery}
	}
	return []error{ErrDiscovery, e.Cause}
}

// MigrationExecutionError reports the pending migration that stopped a run
type MigrationExecutionError struct {
	Version int64
	Name    string
	Cause   error
}

func (e *MigrationExecutionError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Name, e.Cause)
}

func (e *MigrationExecutionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMigrationExecution}
	}
	return []error{ErrMigrationExecution, e.Cause}
}

// IsLedgerError checks if an error is a ledger error
func IsLedgerError(err error) bool {
	return errors.Is(err, ErrLedger)
}

// IsDiscoveryError checks if an error is a discovery error
func IsDiscoveryError(err error) bool {
	return errors.Is(err, ErrDiscovery)
}

// IsMigrationExecutionError checks if an error is a migration execution error
func IsMigrationExecutionError(err error) bool {
	return errors.Is(err, ErrMigrationExecution)
}
