package run

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
	"github.com/temoto/inputmon/monitor"
	"golang.org/x/sys/unix"
)

type testSource struct {
	closed int32
	stopch chan struct{}
	err    error
}

func newTestSource(err error) *testSource {
	return &testSource{stopch: make(chan struct{}), err: err}
}

func (self *testSource) Run(emit func(input.RawEvent)) error {
	if self.err != nil {
		return self.err
	}
	emit(input.RawEvent{Kind: input.KeyDown, Detail: 9})
	<-self.stopch
	return nil
}

func (self *testSource) Close() error {
	if atomic.AddInt32(&self.closed, 1) == 1 {
		close(self.stopch)
	}
	return nil
}

func (self *testSource) String() string { return "test" }

func superviseAsync(t testing.TB, mon *monitor.Monitor, sigs chan os.Signal, ready *int32) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- supervise(log2.NewTest(t, log2.LDebug), mon, sigs, func() { atomic.AddInt32(ready, 1) })
	}()
	return done
}

func TestSuperviseWorkerExit(t *testing.T) {
	t.Parallel()

	src := newTestSource(input.WrapStartup(nil, input.ErrEnable, "test enable"))
	mon := monitor.New(log2.NewTest(t, log2.LDebug), src, new(input.Collector))
	var ready int32
	select {
	case err := <-superviseAsync(t, mon, make(chan os.Signal), &ready):
		require.Error(t, err)
		assert.Equal(t, input.ErrEnable, errors.Cause(err))
	case <-time.After(5 * time.Second):
		t.Fatal("supervise did not return after worker exit")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&ready))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.closed))
}

func TestSuperviseSignal(t *testing.T) {
	t.Parallel()

	src := newTestSource(nil)
	col := new(input.Collector)
	mon := monitor.New(log2.NewTest(t, log2.LDebug), src, col)
	sigs := make(chan os.Signal, 1)
	var ready int32
	done := superviseAsync(t, mon, sigs, &ready)

	deadline := time.Now().Add(5 * time.Second)
	for col.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sigs <- unix.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervise did not return after signal")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.closed))
	assert.Equal(t, []input.Notification{
		{Kind: input.KeyPress, Key: 9},
		{Kind: input.EscapePressed},
	}, col.Take())
}

func TestSuperviseStartFailure(t *testing.T) {
	t.Parallel()

	src := newTestSource(nil)
	mon := monitor.New(log2.NewTest(t, log2.LDebug), src, new(input.Collector))
	require.NoError(t, mon.Start())

	// second Start fails, source must still be closed
	var ready int32
	err := supervise(log2.NewTest(t, log2.LDebug), mon, make(chan os.Signal), func() { atomic.AddInt32(&ready, 1) })
	require.Error(t, err)
	assert.Equal(t, monitor.ErrStarted, errors.Cause(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ready))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.closed))
	assert.NoError(t, mon.Wait())
}
