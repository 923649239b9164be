package auth

import "context"

type noticeContextKey struct{}

func withNotice(ctx context.Context, n *Notice) context.Context {
	return context.WithValue(ctx, noticeContextKey{}, n)
}

// NoticeFromContext returns the lifecycle guard's transient notice for
// the request, if any.
func NoticeFromContext(ctx context.Context) (*Notice, bool) {
	n, ok := ctx.Value(noticeContextKey{}).(*Notice)
	return n, ok
}
