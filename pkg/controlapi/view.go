package controlapi

import (
	"sync"

	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

// View keeps the latest status, image and failure flag published on a
// Broker so HTTP clients that attach late can read the current picture.
type View struct {
	mu     sync.RWMutex
	status string
	image  []byte
	failed bool

	cancels   []func()
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewView subscribes to b and starts tracking it. Call Close to unsubscribe.
func NewView(b *publish.Broker) *View {
	statuses, cancelStatus := b.SubscribeStatus()
	images, cancelImage := b.SubscribeImage()
	failures, cancelFailure := b.SubscribeFailure()

	v := &View{
		cancels: []func(){cancelStatus, cancelImage, cancelFailure},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go v.run(statuses, images, failures)
	return v
}

func (v *View) run(statuses <-chan string, images <-chan publish.Image, failures <-chan struct{}) {
	defer close(v.done)
	for {
		select {
		case <-v.stop:
			return
		case text, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			v.mu.Lock()
			v.status = text
			v.mu.Unlock()
		case img, ok := <-images:
			if !ok {
				images = nil
				continue
			}
			v.mu.Lock()
			if img.Present {
				v.image = img.Data
			} else {
				v.image = nil
			}
			v.mu.Unlock()
		case _, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			v.mu.Lock()
			v.failed = true
			v.mu.Unlock()
		}
	}
}

// Status returns the last published status text.
func (v *View) Status() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Image returns the last published image, if any.
func (v *View) Image() ([]byte, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.image, v.image != nil
}

// Failed reports whether a connection failure was published.
func (v *View) Failed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.failed
}

// Close unsubscribes and stops tracking. It is safe to call more than once,
// from any goroutine.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		close(v.stop)
		<-v.done
		for _, cancel := range v.cancels {
			cancel()
		}
	})
}
