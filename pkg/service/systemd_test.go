package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	result string
	err    error
	unit   string
	mode   string
	closed bool
}

func (f *fakeConn) RestartUnitContext(_ context.Context, name, mode string, ch chan<- string) (int, error) {
	f.unit, f.mode = name, mode
	if f.err != nil {
		return 0, f.err
	}
	ch <- f.result
	return 1, nil
}

func (f *fakeConn) Close() { f.closed = true }

func restarterWith(conn *fakeConn) *SystemdRestarter {
	return &SystemdRestarter{dial: func(context.Context) (unitConn, error) { return conn, nil }}
}

func TestRestart_Done(t *testing.T) {
	conn := &fakeConn{result: "done"}
	require.NoError(t, restarterWith(conn).Restart(context.Background(), "schwab-api.service"))
	assert.Equal(t, "schwab-api.service", conn.unit)
	assert.Equal(t, "replace", conn.mode)
	assert.True(t, conn.closed)
}

func TestRestart_Failed(t *testing.T) {
	conn := &fakeConn{result: "failed"}
	err := restarterWith(conn).Restart(context.Background(), "schwab-api.service")
	assert.ErrorContains(t, err, "failed")
}

func TestRestart_JobError(t *testing.T) {
	conn := &fakeConn{err: errors.New("unit not found")}
	err := restarterWith(conn).Restart(context.Background(), "missing.service")
	assert.ErrorContains(t, err, "unit not found")
}

func TestRestart_DialError(t *testing.T) {
	r := &SystemdRestarter{dial: func(context.Context) (unitConn, error) { return nil, errors.New("no bus") }}
	assert.Error(t, r.Restart(context.Background(), "x.service"))
}
