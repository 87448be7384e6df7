package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrCallNotFinished = errors.New("call did not finish yet")

type (
	CallID string

	// Call is a single execution of a query on a connection.
	Call struct {
		id        CallID
		query     string
		state     CallState
		timeTaken time.Duration
		timestamp time.Time

		result     *Result
		cancelFunc func()

		// any error that might occur during execution
		err  error
		mu   sync.RWMutex
		done chan struct{}
	}
)

func newCallFromExecutor(parent context.Context, executor func(context.Context) (ResultStream, error), query string, onEvent func(CallState, *Call)) *Call {
	ctx, cancel := context.WithCancel(parent)

	c := &Call{
		id:    CallID(uuid.New().String()),
		query: query,
		state: CallStateUnknown,

		result:     new(Result),
		cancelFunc: cancel,

		timestamp: time.Now(),
		done:      make(chan struct{}),
	}

	eventsCh := make(chan CallState, 10)

	// event function handler, done is closed once every event was delivered
	go func() {
		defer close(c.done)

		for state := range eventsCh {
			c.mu.Lock()
			if c.state.IsFinal() {
				c.mu.Unlock()
				continue
			}
			c.state = state
			c.mu.Unlock()

			// trigger event callback
			if onEvent != nil {
				onEvent(state, c)
			}
		}
	}()

	go func() {
		defer cancel()
		defer close(eventsCh)

		fail := func(err error, state CallState) {
			if ctx.Err() != nil {
				state = CallStateCanceled
			}

			c.mu.Lock()
			c.timeTaken = time.Since(c.timestamp)
			c.err = err
			c.mu.Unlock()

			eventsCh <- state
		}

		// execute the function
		eventsCh <- CallStateExecuting
		iter, err := executor(ctx)
		if err != nil {
			fail(err, CallStateExecutingFailed)
			return
		}

		// drain the iterator into result
		err = c.result.SetIter(iter, func() { eventsCh <- CallStateRetrieving })
		if err != nil {
			fail(err, CallStateRetrievingFailed)
			return
		}

		c.mu.Lock()
		c.timeTaken = time.Since(c.timestamp)
		c.mu.Unlock()
		eventsCh <- CallStateMaterialized
	}()

	return c
}

func (c *Call) GetID() CallID {
	return c.id
}

func (c *Call) GetQuery() string {
	return c.query
}

func (c *Call) GetState() CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Call) GetTimeTaken() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeTaken
}

func (c *Call) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Done returns a non-buffered channel that is closed when
// call finishes and all events were delivered.
func (c *Call) Done() chan struct{} {
	return c.done
}

// Cancel stops the call if it is still executing or retrieving.
func (c *Call) Cancel() {
	if c.GetState().IsFinal() {
		return
	}
	c.cancelFunc()
}

// Wait blocks until the call finishes or ctx expires. The call is canceled
// in the latter case.
func (c *Call) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		c.Cancel()
		<-c.done
		if err := c.Err(); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// GetResult returns the materialized result of a finished call.
func (c *Call) GetResult() (*Result, error) {
	state := c.GetState()
	if state.IsFailed() {
		return nil, c.Err()
	}
	if c.result.IsEmpty() {
		return nil, ErrCallNotFinished
	}

	return c.result, nil
}
