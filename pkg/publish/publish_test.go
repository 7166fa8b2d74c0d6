package publish

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestBroker_StatusDelivered(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.SubscribeStatus()
	defer cancel()

	b.PublishStatus("Connected")

	select {
	case got := <-ch:
		if got != "Connected" {
			t.Errorf("status = %q, want Connected", got)
		}
	case <-time.After(time.Second):
		t.Fatal("status not delivered")
	}
}

func TestBroker_MostRecentWins(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.SubscribeStatus()
	defer cancel()

	// Nobody is reading; none of these may block.
	for _, s := range []string{"Connected", "Disconnected — retrying…", "⚠️ INTRUDER DETECTED"} {
		b.PublishStatus(s)
	}

	if got := <-ch; got != "⚠️ INTRUDER DETECTED" {
		t.Errorf("status = %q, want newest", got)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected queued status %q", extra)
	default:
	}
}

func TestBroker_NoSubscribers(t *testing.T) {
	b := NewBroker()
	b.PublishStatus("Connected")
	b.PublishImage(true, []byte{1})
	b.PublishConnectionFailure()
}

func TestBroker_NoReplayForLateSubscriber(t *testing.T) {
	b := NewBroker()
	b.PublishStatus("Connected")

	ch, cancel := b.SubscribeStatus()
	defer cancel()

	select {
	case got := <-ch:
		t.Errorf("late subscriber received %q", got)
	default:
	}
}

func TestBroker_ImageFanOut(t *testing.T) {
	b := NewBroker()
	first, cancel1 := b.SubscribeImage()
	defer cancel1()
	second, cancel2 := b.SubscribeImage()
	defer cancel2()

	b.PublishImage(true, []byte{1, 2, 3})

	for i, ch := range []<-chan Image{first, second} {
		img := <-ch
		if !img.Present || !bytes.Equal(img.Data, []byte{1, 2, 3}) {
			t.Errorf("subscriber %d got %+v", i, img)
		}
	}

	b.PublishImage(false, []byte{9})
	img := <-first
	if img.Present || img.Data != nil {
		t.Errorf("clear image = %+v, want absent with nil data", img)
	}
}

func TestBroker_Failure(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.SubscribeFailure()
	defer cancel()

	b.PublishConnectionFailure()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("failure not delivered")
	}
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.SubscribeStatus()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel open after cancel")
	}
	b.PublishStatus("Connected")
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker()
	status, cancelStatus := b.SubscribeStatus()
	image, _ := b.SubscribeImage()

	b.Close()
	b.Close()
	b.PublishStatus("after close")

	if _, ok := <-status; ok {
		t.Error("status channel open after Close")
	}
	if _, ok := <-image; ok {
		t.Error("image channel open after Close")
	}
	cancelStatus()

	late, _ := b.SubscribeFailure()
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestBroker_ConcurrentPublishAndReceive(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.SubscribeStatus()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.PublishStatus("Connected")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	wg.Wait()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not finish")
	}
}

func TestDiscard(t *testing.T) {
	Discard.PublishStatus("x")
	Discard.PublishImage(true, nil)
	Discard.PublishConnectionFailure()
}
