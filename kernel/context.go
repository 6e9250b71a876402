package kernel

import "context"

type threadKey struct{}

func withThread(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// Running resolves the native thread that owns ctx.
//
// Every entry point receives a context carrying its own handle; Start returns
// the one of the init thread. It returns nil for foreign contexts.
func Running(ctx context.Context) *Thread {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(threadKey{}).(*Thread)
	return t
}
