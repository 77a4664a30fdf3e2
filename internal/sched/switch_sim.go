//go:build !riscv64

package sched

// Host builds cannot transfer control between kernel stacks, so the
// assembly context switch is replaced by a hook tests script to play
// the other side of the switch: observe the outgoing context, mutate
// task state the way the real peer would, and return.
var switchHook func(save, load *Context)

func switchContext(save, load *Context) {
	if switchHook != nil {
		switchHook(save, load)
	}
}

// prepareContext is a no-op on hosts: simulated switches never jump
// through RA, so there is no trampoline to point it at.
func prepareContext(t *Task) {}
