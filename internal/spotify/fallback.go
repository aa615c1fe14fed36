package spotify

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
)

// attemptState is a step of a single fetch.
type attemptState int

const (
	stateDirect attemptState = iota
	stateProxyRetry
	stateFailed
	stateDone
)

func (s attemptState) String() string {
	switch s {
	case stateDirect:
		return "direct"
	case stateProxyRetry:
		return "proxy-retry"
	case stateFailed:
		return "failed"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// transition keys the table on the current state, whether the attempt
// succeeded, and whether the client has seen a fatal proxy failure.
type transition struct {
	from  attemptState
	ok    bool
	fatal bool
}

// A forbidden response never reaches the table: it ends the fetch with
// ErrUnauthorized from any state.
var transitions = map[transition]attemptState{
	{stateDirect, true, false}:      stateDone,
	{stateDirect, true, true}:       stateDone,
	{stateDirect, false, false}:     stateProxyRetry,
	{stateDirect, false, true}:      stateFailed,
	{stateProxyRetry, true, false}:  stateDone,
	{stateProxyRetry, true, true}:   stateDone,
	{stateProxyRetry, false, false}: stateFailed,
	{stateProxyRetry, false, true}:  stateFailed,
}

func nextState(from attemptState, ok, fatal bool) attemptState {
	next, found := transitions[transition{from, ok, fatal}]
	if !found {
		return stateFailed
	}
	return next
}

// fetch runs fn through the direct and proxy routes. ok is false when both
// routes failed; err is only set for ErrUnauthorized.
func fetch[T any](ctx context.Context, c *Client, op string, fn func(api *spotify.Client) (T, error)) (result T, ok bool, err error) {
	log := c.logger.WithField("op", op)
	state := stateDirect

	for {
		var zero T
		if state == stateFailed {
			log.Error("direct and proxy requests failed, returning empty result")
			return zero, false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Warn("request cancelled")
			return zero, false, nil
		}

		api := c.direct
		if state == stateProxyRetry {
			c.activateProxy()
			api = c.proxy
		}

		v, callErr := fn(api)
		if isForbidden(callErr) {
			log.Warn("token rejected")
			return zero, false, ErrUnauthorized
		}
		if callErr != nil {
			if state == stateProxyRetry {
				c.markFatal()
			}
			log.WithFields(logrus.Fields{"route": state.String()}).WithError(callErr).Warn("request failed")
		}

		state = nextState(state, callErr == nil, c.Fatal())
		if state == stateDone {
			return v, true, nil
		}
	}
}
