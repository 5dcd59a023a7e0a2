package bus

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestSubscribeUnsubscribeHooks(t *testing.T) {
	var connects, disconnects int
	s := NewStream[int]("points", Hooks{
		OnSubscribe:   func() { connects++ },
		OnUnsubscribe: func() { disconnects++ },
	})
	test.That(t, s.Name(), test.ShouldEqual, "points")

	ch := make(chan int, 1)
	test.That(t, s.Subscribe("a", ch), test.ShouldBeNil)
	test.That(t, connects, test.ShouldEqual, 1)
	test.That(t, s.SubscriberCount(), test.ShouldEqual, 1)

	err := s.Subscribe("a", ch)
	test.That(t, errors.Is(err, ErrSubscriberExists), test.ShouldBeTrue)
	test.That(t, connects, test.ShouldEqual, 1)

	test.That(t, s.Unsubscribe("a"), test.ShouldBeNil)
	test.That(t, disconnects, test.ShouldEqual, 1)
	test.That(t, s.SubscriberCount(), test.ShouldEqual, 0)

	err = s.Unsubscribe("a")
	test.That(t, errors.Is(err, ErrSubscriberNotFound), test.ShouldBeTrue)
	test.That(t, disconnects, test.ShouldEqual, 1)

	err = s.Subscribe("b", nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPublishDropsWhenFull(t *testing.T) {
	s := NewStream[int]("depth", Hooks{})
	ch := make(chan int, 1)
	test.That(t, s.Subscribe("slow", ch), test.ShouldBeNil)

	s.Publish(1)
	s.Publish(2) // dropped, channel full
	test.That(t, <-ch, test.ShouldEqual, 1)

	stats := s.Stats()
	test.That(t, stats.Published, test.ShouldEqual, 2)
	test.That(t, stats.Sent, test.ShouldEqual, 1)
	test.That(t, stats.Dropped, test.ShouldEqual, 1)
	test.That(t, stats.Subscribers, test.ShouldEqual, 1)
}

func TestPublishFansOut(t *testing.T) {
	s := NewStream[string]("normals", Hooks{})
	a := make(chan string, 1)
	b := make(chan string, 1)
	test.That(t, s.Subscribe("a", a), test.ShouldBeNil)
	test.That(t, s.Subscribe("b", b), test.ShouldBeNil)

	s.Publish("m")
	test.That(t, <-a, test.ShouldEqual, "m")
	test.That(t, <-b, test.ShouldEqual, "m")
}

func TestPublishWithNoSubscribers(t *testing.T) {
	s := NewStream[int]("info", Hooks{})
	s.Publish(1)
	test.That(t, s.Stats().Published, test.ShouldEqual, 1)
	test.That(t, s.Stats().Sent, test.ShouldEqual, 0)
}

func TestCloseUnwindsDemand(t *testing.T) {
	var disconnects int
	s := NewStream[int]("points", Hooks{OnUnsubscribe: func() { disconnects++ }})
	test.That(t, s.Subscribe("a", make(chan int, 1)), test.ShouldBeNil)
	test.That(t, s.Subscribe("b", make(chan int, 1)), test.ShouldBeNil)

	test.That(t, s.Close(), test.ShouldBeNil)
	test.That(t, disconnects, test.ShouldEqual, 2)

	err := s.Subscribe("c", make(chan int, 1))
	test.That(t, errors.Is(err, ErrStreamClosed), test.ShouldBeTrue)
	err = s.Unsubscribe("a")
	test.That(t, errors.Is(err, ErrStreamClosed), test.ShouldBeTrue)
	err = s.Close()
	test.That(t, errors.Is(err, ErrStreamClosed), test.ShouldBeTrue)
}
