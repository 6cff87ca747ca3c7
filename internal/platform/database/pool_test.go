package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{URL: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}

func TestWaitReachable_RetriesUntilPingSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()

	require.NoError(t, waitReachable(context.Background(), db, time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitReachable_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	for range 10 {
		mock.ExpectPing().WillReturnError(errors.New("refused"))
	}

	err = waitReachable(context.Background(), db, 150*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestPool_HealthAndMetrics(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	pool := &Pool{db: db}

	mock.ExpectPing()
	assert.NoError(t, pool.Health(context.Background()))

	reg := prometheus.NewRegistry()
	require.NoError(t, pool.RegisterMetrics(reg))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	mock.ExpectClose()
	require.NoError(t, pool.Close())

	var nilPool *Pool
	assert.Error(t, nilPool.Health(context.Background()))
}
