package metrics

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func expectSchemaVersion(mock sqlmock.Sqlmock, version int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("schema_versions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(version))
}

func expectRecreate(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS cycles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS schema_versions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_versions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_versions")).
		WithArgs(SchemaVersion).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func expectClose(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("PRAGMA wal_checkpoint(TRUNCATE)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
}

func testConfig(t *testing.T, batchSize int) Config {
	t.Helper()

	return Config{
		DBPath:    filepath.Join(t.TempDir(), "cycles.db"),
		BatchSize: batchSize,
		Enabled:   true,
	}
}

func appliedRecord(id string) *CycleRecord {
	started := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	return &CycleRecord{
		ID:          id,
		Started:     started,
		Finished:    started.Add(2 * time.Second),
		Host:        "192.168.8.180",
		Temperature: sql.NullFloat64{Float64: 52, Valid: true},
		Duty:        sql.NullInt64{Int64: 40, Valid: true},
		Action:      "applied",
	}
}

func TestFreshDatabaseGetsSchema(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("schema_versions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	expectRecreate(mock)

	require.NoError(t, ValidateAndUpdateSchema(db, t.TempDir(), logger.Default()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentSchemaIsLeftAlone(t *testing.T) {
	db, mock := newMock(t)
	expectSchemaVersion(mock, SchemaVersion)

	require.NoError(t, ValidateAndUpdateSchema(db, t.TempDir(), logger.Default()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutdatedSchemaIsBackedUpAndRecreated(t *testing.T) {
	db, mock := newMock(t)
	expectSchemaVersion(mock, SchemaVersion+1)
	mock.ExpectExec("VACUUM INTO '.*cycles_v2_.*\\.db'").WillReturnResult(sqlmock.NewResult(0, 0))
	expectRecreate(mock)

	backupDir := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, ValidateAndUpdateSchema(db, backupDir, logger.Default()))
	assert.DirExists(t, backupDir)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFlushesFullBatch(t *testing.T) {
	db, mock := newMock(t)
	expectSchemaVersion(mock, SchemaVersion)

	repo, err := openRepository(db, testConfig(t, 2), logger.Default())
	require.NoError(t, err)

	first, second := appliedRecord("a"), appliedRecord("b")

	mock.ExpectBegin()
	insert := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO cycles"))
	insert.ExpectExec().
		WithArgs("a", first.Started.UnixMilli(), first.Finished.UnixMilli(), "192.168.8.180",
			52.0, int64(40), "applied", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	insert.ExpectExec().
		WithArgs("b", sqlmock.AnyArg(), sqlmock.AnyArg(), "192.168.8.180",
			52.0, int64(40), "applied", nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Record(first))
	assert.Len(t, repo.buffer, 1)
	require.NoError(t, repo.Record(second))
	assert.Empty(t, repo.buffer)

	expectClose(mock)
	require.NoError(t, repo.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseFlushesPartialBatch(t *testing.T) {
	db, mock := newMock(t)
	expectSchemaVersion(mock, SchemaVersion)

	repo, err := openRepository(db, testConfig(t, 10), logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Record(appliedRecord("a")))

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO cycles")).
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	expectClose(mock)

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "second close is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedFlushKeepsRecords(t *testing.T) {
	db, mock := newMock(t)
	expectSchemaVersion(mock, SchemaVersion)

	repo, err := openRepository(db, testConfig(t, 1), logger.Default())
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	err = repo.Record(appliedRecord("a"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	assert.Len(t, repo.buffer, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFromOutcome(t *testing.T) {
	started := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	t.Run("failed actuation keeps code and detail", func(t *testing.T) {
		record := FromOutcome(&control.Outcome{
			ID:             "cycle-1",
			Started:        started,
			Finished:       started.Add(time.Second),
			Address:        "10.0.0.5",
			Temperature:    61.5,
			HasTemperature: true,
			Duty:           60,
			HasDuty:        true,
			Action:         control.ActionFailed,
			Err:            errors.New().WithMessage(errors.ErrCommandFailed, "exit status 1"),
		})

		assert.Equal(t, "cycle-1", record.ID)
		assert.Equal(t, "10.0.0.5", record.Host)
		assert.Equal(t, sql.NullFloat64{Float64: 61.5, Valid: true}, record.Temperature)
		assert.Equal(t, sql.NullInt64{Int64: 60, Valid: true}, record.Duty)
		assert.Equal(t, "failed", record.Action)
		assert.Equal(t, sql.NullString{String: "command_failed", Valid: true}, record.ErrorCode)
		assert.Equal(t, "exit status 1", record.ErrorDetail.String)
	})

	t.Run("missing reading leaves columns null", func(t *testing.T) {
		record := FromOutcome(&control.Outcome{
			ID:      "cycle-2",
			Started: started,
			Action:  control.ActionNoReading,
		})

		assert.False(t, record.Temperature.Valid)
		assert.False(t, record.Duty.Valid)
		assert.False(t, record.ErrorCode.Valid)
		assert.False(t, record.ErrorDetail.Valid)
	})
}

type stubRepository struct {
	records []*CycleRecord
	closed  bool
}

func (s *stubRepository) Record(record *CycleRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *stubRepository) Close() error {
	s.closed = true
	return nil
}

func TestServiceRecordsOutcomes(t *testing.T) {
	repo := &stubRepository{}
	svc := newService(repo, testConfig(t, 1))

	require.NoError(t, svc.Record(context.Background(), &control.Outcome{ID: "x", Action: control.ActionNoBand}))
	require.Len(t, repo.records, 1)
	assert.Equal(t, "no_band", repo.records[0].Action)

	err := svc.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, ErrInvalidMetrics))

	require.NoError(t, svc.Close())
	assert.True(t, repo.closed)
}

func TestDisabledServiceIsNoop(t *testing.T) {
	svc, err := NewService(DefaultConfig(), logger.Default())
	require.NoError(t, err)
	assert.IsType(t, &noopCollector{}, svc)
	assert.NoError(t, svc.Record(context.Background(), &control.Outcome{ID: "x"}))
	assert.NoError(t, svc.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidDBPath))

	cfg = DefaultConfig()
	cfg.BatchSize = -1
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))
}
