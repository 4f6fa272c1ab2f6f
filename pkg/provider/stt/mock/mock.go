// Package mock provides a test double for the stt.Recognizer interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/docbuddy/pkg/provider/stt"
)

// Recognizer is a mock implementation of stt.Recognizer. Set Result and Err
// before use; RecognizeFunc overrides both when non-nil.
type Recognizer struct {
	mu sync.Mutex

	// Result is returned by Recognize when Err is nil.
	Result stt.Result

	// Err, if non-nil, is returned from Recognize.
	Err error

	// RecognizeFunc, if non-nil, is called instead of returning Result/Err.
	RecognizeFunc func(ctx context.Context, cfg stt.Config, frames <-chan []byte) (stt.Result, error)

	// Drain controls whether the mock consumes frames until the channel
	// closes before returning, mirroring the real recognizer's behaviour.
	Drain bool

	// Calls counts Recognize invocations.
	Calls int
}

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Recognize implements stt.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, cfg stt.Config, frames <-chan []byte) (stt.Result, error) {
	r.mu.Lock()
	r.Calls++
	fn := r.RecognizeFunc
	res, err := r.Result, r.Err
	drain := r.Drain
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, cfg, frames)
	}
	if drain {
		for {
			select {
			case <-ctx.Done():
				return stt.Result{}, ctx.Err()
			case _, ok := <-frames:
				if !ok {
					if err != nil {
						return stt.Result{}, err
					}
					return res, nil
				}
			}
		}
	}
	if err != nil {
		return stt.Result{}, err
	}
	return res, nil
}

// CallCount returns the number of Recognize invocations so far.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls
}
