package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offsetLog struct {
	mu      sync.Mutex
	offsets []int64
}

func (l *offsetLog) add(offset int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offsets = append(l.offsets, offset)
}

func (l *offsetLog) all() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int64(nil), l.offsets...)
}

func fastConsumer(reader *fakeReader) *Consumer {
	c := newConsumer(reader, "requests", nil)
	c.retryBackoff = time.Millisecond
	c.maxRetryBackoff = 4 * time.Millisecond
	return c
}

func TestConsumerRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{
		{Topic: "requests", Offset: 10},
		{Topic: "requests", Offset: 11},
	}}
	consumer := fastConsumer(reader)

	handled := &offsetLog{}
	failures := 2
	handler := func(_ context.Context, msg *Message) error {
		handled.add(msg.Offset)
		if msg.Offset == 10 && failures > 0 {
			failures--
			return stderrors.New("publish failed")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.ConsumeMessages(ctx, handler) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []int64{10, 10, 10, 11}, handled.all())
	assert.Equal(t, []int64{10, 11}, reader.commits())
}

func TestConsumerNeverCommitsPastFailingMessage(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{
		{Topic: "requests", Offset: 10},
		{Topic: "requests", Offset: 11},
	}}
	consumer := fastConsumer(reader)

	handled := &offsetLog{}
	handler := func(_ context.Context, msg *Message) error {
		handled.add(msg.Offset)
		return stderrors.New("broker down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := consumer.ConsumeMessages(ctx, handler)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Empty(t, reader.commits())
	offsets := handled.all()
	require.NotEmpty(t, offsets)
	assert.NotContains(t, offsets, int64(11))
}
