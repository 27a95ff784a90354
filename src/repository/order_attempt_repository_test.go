package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"c2cexecutor/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestOrderAttemptRepositoryCreate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderAttemptRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_attempts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	attempt := &model.OrderAttempt{
		SessionID: "9e4c4c7e-7a31-4a9e-9a0e-0a8ad7b1a001",
		AdvNo:     "adv-1",
		Asset:     "USDT",
		FiatUnit:  "INR",
		TradeType: "BUY",
		Amount:    decimal.RequireFromString("1000"),
		Status:    model.OrderAttemptStatusPlaced,
	}

	if err := repo.Create(context.Background(), attempt); err != nil {
		t.Fatalf("unexpected error creating attempt: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderAttemptRepositoryFindBySession(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderAttemptRepository{db: mockDB}

	sessionID := "9e4c4c7e-7a31-4a9e-9a0e-0a8ad7b1a001"
	rows := sqlmock.NewRows([]string{"id", "session_id", "adv_no", "status"}).
		AddRow(1, sessionID, "adv-1", model.OrderAttemptStatusPlaced).
		AddRow(2, sessionID, "adv-2", model.OrderAttemptStatusRejected)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "order_attempts" WHERE session_id = $1 ORDER BY id ASC`,
	)).WithArgs(sessionID).WillReturnRows(rows)

	attempts, err := repo.FindBySession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("unexpected error fetching attempts: %v", err)
	}

	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}

	if attempts[0].AdvNo != "adv-1" || attempts[1].AdvNo != "adv-2" {
		t.Fatalf("attempts not returned oldest first: %+v", attempts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
