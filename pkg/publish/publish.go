package publish

import "sync"

// Publisher is the engine's outbound notification contract.
type Publisher interface {
	// PublishStatus pushes human-readable connection/threat status.
	PublishStatus(text string)

	// PublishImage pushes the latest image (present) or tells subscribers
	// to clear what they show (!present, data nil). Every subscriber of a
	// Broker receives the same slice, so receivers must treat it as read-only.
	PublishImage(present bool, data []byte)

	// PublishConnectionFailure signals that the engine gave up and the
	// caller should obtain a new endpoint.
	PublishConnectionFailure()
}

// Image is the payload of the image topic.
type Image struct {
	Present bool
	Data    []byte
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) PublishStatus(string)      {}
func (discard) PublishImage(bool, []byte) {}
func (discard) PublishConnectionFailure() {}

// Broker is a Publisher with three typed topics. The zero value is not
// usable; call NewBroker.
type Broker struct {
	status  *topic[string]
	image   *topic[Image]
	failure *topic[struct{}]
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		status:  newTopic[string](),
		image:   newTopic[Image](),
		failure: newTopic[struct{}](),
	}
}

// PublishStatus implements Publisher.
func (b *Broker) PublishStatus(text string) {
	b.status.publish(text)
}

// PublishImage implements Publisher.
func (b *Broker) PublishImage(present bool, data []byte) {
	if !present {
		data = nil
	}
	b.image.publish(Image{Present: present, Data: data})
}

// PublishConnectionFailure implements Publisher.
func (b *Broker) PublishConnectionFailure() {
	b.failure.publish(struct{}{})
}

// SubscribeStatus returns a channel of status updates and a cancel func.
func (b *Broker) SubscribeStatus() (<-chan string, func()) {
	return b.status.subscribe()
}

// SubscribeImage returns a channel of image updates and a cancel func.
func (b *Broker) SubscribeImage() (<-chan Image, func()) {
	return b.image.subscribe()
}

// SubscribeFailure returns a channel that receives the terminal
// connection-failure notice, and a cancel func.
func (b *Broker) SubscribeFailure() (<-chan struct{}, func()) {
	return b.failure.subscribe()
}

// Close closes every subscriber channel. Publishing after Close is a no-op.
func (b *Broker) Close() {
	b.status.close()
	b.image.close()
	b.failure.close()
}

// topic fans a value out to subscriber channels of capacity one.
type topic[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

func newTopic[T any]() *topic[T] {
	return &topic[T]{subs: make(map[chan T]struct{})}
}

func (t *topic[T]) subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (t *topic[T]) publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for ch := range t.subs {
		// Sends happen under mu, so only a receiver can race with us and
		// the second send always finds room.
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (t *topic[T]) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}
