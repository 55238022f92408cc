package storage

// CommitHandler one step of a commit, it gets the store being committed
type CommitHandler interface {
	Commit(Storager) error
}

// CommitHandlerFunc lets a plain func act as a CommitHandler
type CommitHandlerFunc func(Storager) error

func (f CommitHandlerFunc) Commit(store Storager) error {
	return f(store)
}

// MiddlewareCommitFunc wraps next, the returned handler decides whether
// and when next runs
type MiddlewareCommitFunc func(next CommitHandler) CommitHandler

// CommitChain middlewares run around every Commit of a chained store
type CommitChain struct {
	middlewares []MiddlewareCommitFunc
}

func NewCommitChain(mwf ...MiddlewareCommitFunc) *CommitChain {
	return new(CommitChain).Attach(mwf...)
}

// Attach adds middlewares inside the ones already attached
func (c *CommitChain) Attach(mwf ...MiddlewareCommitFunc) *CommitChain {
	c.middlewares = append(c.middlewares, mwf...)
	return c
}

func (c *CommitChain) commit(store Storager, last CommitHandler) error {
	h := last
	// the first attached middleware is the outermost one
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h.Commit(store)
}

// chained store whose Commit passes the chain before reaching Storager
type chained struct {
	Storager
	chain *CommitChain
}

// Chain returns store whose Commit runs through chain
func Chain(store Storager, chain *CommitChain) Storager {
	if chain == nil || len(chain.middlewares) == 0 {
		return store
	}
	return &chained{Storager: store, chain: chain}
}

func (c *chained) Commit() error {
	return c.chain.commit(c, CommitHandlerFunc(func(Storager) error {
		return c.Storager.Commit()
	}))
}
