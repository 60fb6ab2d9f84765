package corescan

import "sync/atomic"

// atomicFlag is an advisory busy marker. It never blocks.
type atomicFlag struct{ b atomic.Bool }

func (f *atomicFlag) take() bool { return f.b.CompareAndSwap(false, true) }

func (f *atomicFlag) drop() { f.b.Store(false) }
