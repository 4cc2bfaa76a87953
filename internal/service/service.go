// Package service holds the place and user workflows. Every operation returns
// either its result or an *apperr.Error whose message is safe to show callers.
package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tazhibayda/places-service/internal/apperr"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/metrics"
	"github.com/tazhibayda/places-service/internal/queue"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const msgInvalidInput = "Invalid inputs passed, please check your data."

var validate = validator.New(validator.WithRequiredStructEnabled())

func checkInput(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Validation(msgInvalidInput, err)
	}
	return nil
}

// parseID turns a hex id into an ObjectID; ok is false for malformed input.
func parseID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return id, err == nil
}

// base carries what both workflows share: logger and event publisher.
type base struct {
	log    *zap.Logger
	events queue.Publisher
}

// done records the outcome of op and logs server-side failures with their cause.
func (b *base) done(ctx context.Context, op string, err error) error {
	if err == nil {
		metrics.Operations.WithLabelValues(op, "ok").Inc()
		return nil
	}
	kind := apperr.KindOf(err)
	metrics.Operations.WithLabelValues(op, kind.String()).Inc()
	if apperr.StatusOf(err) >= 500 {
		log.WithDD(ctx, b.log).Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// publish is best-effort; the data change has already committed.
func (b *base) publish(ctx context.Context, key string, event any) {
	if err := b.events.Publish(ctx, key, event); err != nil {
		log.WithDD(ctx, b.log).Warn("event publish failed", zap.String("key", key), zap.Error(err))
	}
}
