package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id used to correlate operation logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs the duration of an operation once the returned func is called.
// Pass the address of the named error result so failures are logged at error level:
//
//	defer obs.Time(ctx, log, "schedule_trip")(&err)
func Time(ctx context.Context, log zerolog.Logger, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Error().Err(*errp).Str("req_id", reqID).Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("operation failed")
			return
		}
		log.Debug().Str("req_id", reqID).Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("operation finished")
	}
}
