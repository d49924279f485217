// Package repository implements the relational store contracts used by the
// reservation workflow on top of MySQL.  Every method is a single,
// independent statement: nothing here opens a transaction or holds a lock
// across calls.  The sentinel values below let the service and handler
// layers tell normal rejections apart from store failures.
package repository

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a point read finds no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index, for
// example a second active booking for the same slot.
var ErrDuplicate = errors.New("duplicate")

// MySQL server error numbers.
const (
	errDupEntry         = 1062
	errTooManyConns     = 1040
	errLockWaitTimeout  = 1205
	errDeadlock         = 1213
	errQueryInterrupted = 1317
)

// IsRetryable reports whether err is a transient store failure worth one
// more try.  Only read steps are ever retried; a write whose response was
// lost may already have been applied.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errTooManyConns, errLockWaitTimeout, errDeadlock, errQueryInterrupted:
			return true
		}
	}
	return false
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
