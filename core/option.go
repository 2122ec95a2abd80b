package core

// Option configures a Runnable invocation. Concrete option types are
// defined by the packages that interpret them (e.g. a reranker top_k
// override); core only defines the passthrough contract so that composed
// Runnables (Pipe, Parallel) can forward options without interpreting them.
type Option interface {
	apply(target any)
}

// OptionFunc adapts a plain function to the Option interface.
type OptionFunc func(target any)

func (f OptionFunc) apply(target any) {
	f(target)
}
