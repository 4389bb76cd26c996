// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frontend

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/ericwq/domterm/util"
)

const maxSignalNumber = 64

// Signals records which signals arrived, one slot per signal number.
type Signals [maxSignalNumber]atomic.Int32

// GotSignal consumes the notification of signal x.
func (s *Signals) GotSignal(x syscall.Signal) (ret bool) {
	if x >= 0 && x < maxSignalNumber {
		ret = s[x].Swap(0) > 0
	}
	return
}

func (s *Signals) Handler(sig os.Signal) {
	ss, ok := sig.(syscall.Signal)
	if !ok || ss < 0 || ss >= maxSignalNumber {
		util.Logger.Warn("signal out of range", "signal", sig)
		return
	}
	s[ss].Store(int32(ss))
}

// AnySignal doesn't consume signal notifications.
func (s *Signals) AnySignal() (rv bool) {
	for i := range s {
		rv = rv || s[i].Load() > 0
	}
	return
}

// Watch records sigs as they arrive and calls fn once, for the first of them.
// The returned function stops watching.
func (s *Signals) Watch(fn func(os.Signal), sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, sigs...)

	var once sync.Once
	go func() {
		for {
			select {
			case sig := <-ch:
				s.Handler(sig)
				once.Do(func() { fn(sig) })
			case <-done:
				return
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
