package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumberedRecords(t *testing.T) {
	records := NumberedRecords(3)
	assert.Len(t, records, 3)
	assert.Equal(t, 1, records[0]["id"])
	assert.Equal(t, 3, records[2]["id"])
	assert.Empty(t, NumberedRecords(0))
}

func TestAssertEventually(t *testing.T) {
	var n int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&n, 1)
	}()
	AssertEventually(t, func() bool { return atomic.LoadInt32(&n) == 1 }, time.Second, "flag never set")
}

func TestTestContext(t *testing.T) {
	ctx := TestContext(t)
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, time.Second)
}
