package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDatastore struct {
	PingFunc func(ctx context.Context) error
	closed   bool
}

func (m *MockDatastore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockDatastore) Close() error {
	m.closed = true
	return nil
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	healthy := &MockDatastore{}
	got, err := connect(ctx, func() (*MockDatastore, error) { return healthy, nil })
	require.NoError(t, err)
	assert.Same(t, healthy, got)
	assert.False(t, healthy.closed)

	down := &MockDatastore{PingFunc: func(context.Context) error { return errors.New("connection refused") }}
	got, err = connect(ctx, func() (*MockDatastore, error) { return down, nil })
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, down.closed)

	_, err = connect(ctx, func() (*MockDatastore, error) { return nil, errors.New("bad dsn") })
	assert.EqualError(t, err, "bad dsn")
}

func TestRetryWithBackoff_ClosesEveryFailedAttempt(t *testing.T) {
	ctx := context.Background()
	var opened []*MockDatastore
	var current *MockDatastore

	err := retryWithBackoff(func() error {
		ds := &MockDatastore{}
		if len(opened) < 2 {
			ds.PingFunc = func(context.Context) error { return errors.New("not ready") }
		}
		opened = append(opened, ds)
		var err error
		current, err = connect(ctx, func() (*MockDatastore, error) { return ds, nil })
		return err
	}, 3, time.Millisecond, zap.NewNop(), "datastore")
	require.NoError(t, err)

	require.Len(t, opened, 3)
	assert.True(t, opened[0].closed)
	assert.True(t, opened[1].closed)
	assert.False(t, opened[2].closed)
	assert.Same(t, opened[2], current)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		return errors.New("down")
	}, 2, time.Millisecond, zap.NewNop(), "redis")

	assert.Equal(t, 2, attempts)
	assert.ErrorContains(t, err, "redis failed after 2 attempts")
}
