package lib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleOneTimeFires(t *testing.T) {
	StartScheduler()
	defer StopScheduler()

	fired := make(chan struct{})
	_, err := ScheduleOneTime(time.Now().Add(100*time.Millisecond), func() {
		close(fired)
	})
	assert.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}
