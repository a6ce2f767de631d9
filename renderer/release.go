package renderer

import (
	"log/slog"
)

type release struct {
	name string
	fn   func()
}

// releaser records how to destroy each object at the moment it is created, so
// teardown is always the exact reverse of construction.
type releaser struct {
	stack []release
}

func (r *releaser) push(name string, fn func()) {
	r.stack = append(r.stack, release{name: name, fn: fn})
}

func (r *releaser) len() int {
	return len(r.stack)
}

// releaseAll pops and runs every entry, newest first. Calling it again is a no-op.
func (r *releaser) releaseAll(log *slog.Logger) {
	for len(r.stack) > 0 {
		last := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]

		log.Debug("releasing", "object", last.name)
		last.fn()
	}
}
