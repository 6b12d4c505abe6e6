package core

import "context"

type contextKey string

const ctxKeyRequester contextKey = "requester"

// Requester describes who started an import. Transports attach it to the
// context and the service adds it to every log line of the import.
type Requester struct {
	Source    string // "http" or "cli"
	IPAddress string
	UserAgent string
}

// ContextWithRequester attaches r to ctx.
func ContextWithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, ctxKeyRequester, r)
}

// RequesterFromContext returns the requester attached to ctx, if any.
func RequesterFromContext(ctx context.Context) (Requester, bool) {
	r, ok := ctx.Value(ctxKeyRequester).(Requester)
	return r, ok
}

// logFields returns the requester as slog key/value pairs, skipping empty
// values.
func (r Requester) logFields() []any {
	var fields []any
	if r.Source != "" {
		fields = append(fields, "source", r.Source)
	}
	if r.IPAddress != "" {
		fields = append(fields, "ip", r.IPAddress)
	}
	if r.UserAgent != "" {
		fields = append(fields, "user_agent", r.UserAgent)
	}
	return fields
}
