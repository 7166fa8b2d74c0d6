package controlapi

import (
	"sync"
	"testing"
	"time"

	"github.com/lockwatch-dev/lockwatch/pkg/engine"
	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

func TestView_CloseConcurrent(t *testing.T) {
	b := publish.NewBroker()
	defer b.Close()
	v := NewView(b)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Close()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Close calls did not return")
	}

	v.Close()
}

func TestView_StopsTrackingAfterClose(t *testing.T) {
	b := publish.NewBroker()
	defer b.Close()
	v := NewView(b)

	b.PublishStatus(engine.StatusConnected)
	waitFor(t, func() bool { return v.Status() == engine.StatusConnected })

	v.Close()
	b.PublishStatus(engine.StatusIntruder)
	time.Sleep(20 * time.Millisecond)
	if got := v.Status(); got != engine.StatusConnected {
		t.Errorf("Status() after Close = %q, want %q", got, engine.StatusConnected)
	}
}
