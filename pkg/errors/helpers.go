package errors

import "context"

// CheckContext returns a canonical error for an expired context, or nil.
func CheckContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return Wrap(err, Timeout, "operation timed out")
		}
		return Wrap(err, Canceled, "operation was canceled")
	}
	return nil
}
