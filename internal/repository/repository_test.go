package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/driesverstreepen/studio-reservations/internal/model"
)

// assert fails the test if the condition is false.
func assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	if !condition {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: "+msg+"\033[39m\n\n", append([]interface{}{filepath.Base(file), line}, v...)...)
		tb.FailNow()
	}
}

// ok fails the test if an err is not nil.
func ok(tb testing.TB, err error) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: unexpected error: %s\033[39m\n\n", filepath.Base(file), line, err.Error())
		tb.FailNow()
	}
}

// equals fails the test if exp is not equal to act.
func equals(tb testing.TB, exp, act interface{}) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d:\n\n\texp: %#v\n\n\tgot: %#v\033[39m\n\n", filepath.Base(file), line, exp, act)
		tb.FailNow()
	}
}

func newMock(tb testing.TB) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	ok(tb, err)
	tb.Cleanup(func() {
		ok(tb, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestConsumeCreditGuardIsPartOfTheUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCreditPoolRepo(db)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET credits_used = credits_used + 1, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ? AND credits_used + 1 <= credits_total AND (expires_at IS NULL OR expires_at > ?)")).
		WithArgs("pool-a", "paid", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE credit_pools")).
		WithArgs("pool-a", "paid", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.ConsumeCredit(context.Background(), "pool-a", now)
	ok(t, err)
	assert(t, won, "first consume should win the credit")

	won, err = repo.ConsumeCredit(context.Background(), "pool-a", now)
	ok(t, err)
	assert(t, !won, "zero affected rows must report a lost race")
}

func TestConsumeCreditPropagatesStoreErrors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCreditPoolRepo(db)

	lockWait := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE credit_pools")).WillReturnError(lockWait)

	_, err := repo.ConsumeCredit(context.Background(), "pool-a", time.Now())
	var myErr *mysql.MySQLError
	assert(t, errors.As(err, &myErr), "expected wrapped mysql error, got %v", err)
	equals(t, uint16(1205), myErr.Number)
}

func TestReleaseCreditHasFloor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCreditPoolRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("SET credits_used = credits_used - 1, updated_at = UTC_TIMESTAMP() WHERE id = ? AND credits_used >= 1")).
		WithArgs("pool-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	released, err := repo.ReleaseCredit(context.Background(), "pool-a")
	ok(t, err)
	assert(t, !released, "floor should stop the release")
}

func TestListCandidatePools(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCreditPoolRepo(db)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	exp := now.Add(48 * time.Hour)
	created := now.Add(-24 * time.Hour)
	product := "prod-1"

	cols := []string{"id", "owner_id", "organization_id", "product_id", "credits_total", "credits_used", "expires_at", "status", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("AND product_id = ? ORDER BY expires_at IS NULL, expires_at ASC, created_at ASC, id ASC")).
		WithArgs("user-1", "org-1", "paid", now, product).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "user-1", "org-1", product, 10, 2, exp, "paid", created, created).
			AddRow("p2", "user-1", "org-1", product, 5, 5, nil, "paid", created, created))

	pools, err := repo.ListCandidatePools(context.Background(), model.PoolQuery{
		OwnerID: "user-1", OrganizationID: "org-1", ProductID: &product, Now: now,
	})
	ok(t, err)
	equals(t, 2, len(pools))
	equals(t, "p1", pools[0].ID)
	equals(t, 8, pools[0].Remaining())
	assert(t, pools[0].ExpiresAt != nil && pools[0].ExpiresAt.Equal(exp), "expiry not scanned: %v", pools[0].ExpiresAt)
	equals(t, product, *pools[0].ProductID)
	assert(t, pools[1].ExpiresAt == nil, "nil expiry should stay nil")
	assert(t, !pools[1].HasCapacity(), "full pool should be returned without capacity")
}

func TestCreateBookingMapsDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs("b1", "user-1", "", "off-1", "2026-10-20T18:00", "pool-a", "active", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.CreateBooking(context.Background(), &model.Booking{
		ID: "b1", RequesterID: "user-1", OfferingID: "off-1", SessionMarker: "2026-10-20T18:00", PoolID: "pool-a",
	})
	assert(t, errors.Is(err, ErrDuplicate), "expected ErrDuplicate, got %v", err)
}

func TestHasActiveBookingUsesDependentColumn(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	dep := "dep-1"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs("user-1", "dep-1", "off-1", "2026-10-20T18:00", "active").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.HasActiveBooking(context.Background(), model.BookingKey{
		RequesterID: "user-1", DependentID: &dep, OfferingID: "off-1", SessionMarker: "2026-10-20T18:00",
	})
	ok(t, err)
	assert(t, found, "expected an active booking")
}

func TestAppendLedgerEntry(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLedgerRepo(db)
	bookingID := "b1"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_ledger")).
		WithArgs("pool-a", "user-1", "org-1", -1, "reservation", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	e := &model.LedgerEntry{PoolID: "pool-a", RequesterID: "user-1", OrganizationID: "org-1",
		Delta: -1, Reason: model.ReasonReservation, BookingID: &bookingID}
	ok(t, repo.AppendLedgerEntry(context.Background(), e))
	equals(t, uint64(42), e.ID)
}

func TestGetOfferingNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfferingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM offerings WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "title", "required_product_id", "accepts_credits"}))

	_, err := repo.GetOffering(context.Background(), "missing")
	assert(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestIsRetryable(t *testing.T) {
	equals(t, true, IsRetryable(fmt.Errorf("read: %w", driver.ErrBadConn)))
	equals(t, true, IsRetryable(mysql.ErrInvalidConn))
	equals(t, true, IsRetryable(&mysql.MySQLError{Number: 1213}))
	equals(t, false, IsRetryable(&mysql.MySQLError{Number: 1062}))
	equals(t, false, IsRetryable(errors.New("boom")))
	equals(t, false, IsRetryable(nil))
}
