// Package txn runs multi-document writes inside a MongoDB transaction when the
// deployment supports it, and falls back to sequential writes on standalone
// servers.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Command error codes returned when transactions are unavailable.
const (
	codeIllegalOperation       = 20
	codeNoReplicationEnabled   = 51
	codeOperationNotSupportedT = 263
)

var notSupportedKeywords = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions (standalone mongod, some emulators).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotSupportedT:
			return true
		}
	}

	// Driver and server wording varies; require two independent hints so a
	// plain "transaction failed" is not mistaken for an unsupported server.
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range notSupportedKeywords {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Run executes fn inside a transaction on client. If the server does not
// support transactions, fn is executed once more without a session, so every
// step in fn must be idempotent.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, name string, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runPlain(ctx, log, name, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runPlain(ctx, log, name, fn)
	}
	return err
}

func runPlain(ctx context.Context, log *zap.Logger, name string, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Debug("transactions unsupported; running steps sequentially", zap.String("operation", name))
	}
	return fn(ctx)
}
