package store

// owner serializes all writes to one aggregate behind a single goroutine
// (SPEC_FULL.md §9 design note: "a collection of per-aggregate owners
// (actor-like) with message-passed writes rather than a single global
// lock"). Reads do not go through the owner goroutine: they take the
// aggregate's sync.RWMutex read lock directly, so readers never wait on
// queued writes, only on the write currently being applied.
type owner struct {
	cmds chan func()
	done chan struct{}
}

func newOwner() *owner {
	o := &owner{
		cmds: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *owner) run() {
	for fn := range o.cmds {
		fn()
	}
	close(o.done)
}

// do runs fn on the owner goroutine and blocks until it returns,
// giving callers a synchronous "transaction" over the aggregate's state
// (spec.md §4.1: "all writes occur inside a transaction").
func (o *owner) do(fn func()) {
	result := make(chan struct{})
	o.cmds <- func() {
		defer close(result)
		fn()
	}
	<-result
}

func (o *owner) close() {
	close(o.cmds)
	<-o.done
}
