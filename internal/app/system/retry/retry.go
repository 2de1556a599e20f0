// Package retry classifies MongoDB errors and performs the single internal
// retry allowed for pure reads. Writes are never retried here: a write that
// lost a race must surface to the caller so a claim is never duplicated.
package retry

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes that indicate a failover or connectivity blip rather
// than a problem with the request itself.
var transientCodes = map[int32]bool{
	6:     true, // HostUnreachable
	7:     true, // HostNotFound
	89:    true, // NetworkTimeout
	91:    true, // ShutdownInProgress
	189:   true, // PrimarySteppedDown
	9001:  true, // SocketException
	10107: true, // NotWritablePrimary
	11600: true, // InterruptedAtShutdown
	11602: true, // InterruptedDueToReplStateChange
	13435: true, // NotPrimaryNoSecondaryOk
	13436: true, // NotPrimaryOrSecondary
}

// IsTransient reports whether err is a transient store failure worth one
// more attempt. Context cancellation and deadlines are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false
	}
	if mongo.IsNetworkError(err) {
		return true
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if transientCodes[ce.Code] || ce.HasErrorLabel("TransientTransactionError") {
			return true
		}
		return false
	}

	// Some proxies (DocumentDB, Atlas serverless) only give us text.
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "connection reset") ||
		(strings.Contains(s, "server selection") && strings.Contains(s, "timeout"))
}

// Read runs fn and, if it fails with a transient error while ctx is still
// live, runs it exactly once more.
func Read[T any](ctx context.Context, log *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return v, err
	}
	if log != nil {
		log.Warn("transient read failure, retrying once",
			zap.String("operation", op),
			zap.Error(err))
	}
	return fn(ctx)
}
