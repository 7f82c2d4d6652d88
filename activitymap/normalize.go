// Package activitymap turns auth activity events into a flat record for
// audit trails and log pipelines.
package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	auth "github.com/goliatone/go-authflow"
)

const (
	// MetadataKeyReason carries the rejection reason, when there is one
	MetadataKeyReason = "reason"
	// MetadataKeyOutcome is "success" or "rejected"
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	redact        []string
}

// Normalize converts an auth.ActivityEvent into the normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	actorID := userID
	if actorID == "" {
		actorID = options.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, options.redact),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithRedactedKeys drops metadata keys, e.g. the submitted credential
func WithRedactedKeys(keys ...string) Option {
	return func(opts *normalizeOptions) {
		opts.redact = append(opts.redact, keys...)
	}
}

// Sink returns an ActivitySink that normalizes every event and hands it
// to record.
func Sink(record func(ctx context.Context, n Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		return record(ctx, Normalize(event, opts...))
	})
}

// LogSink writes normalized events to logger at info level
func LogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = auth.NopLogger()
	}
	return Sink(func(_ context.Context, n Normalized) error {
		logger.Info("auth activity",
			"verb", n.Verb,
			"actor_id", n.ActorID,
			"object_id", n.ObjectID,
			"channel", n.Channel,
			"metadata", n.Metadata,
			"occurred_at", n.OccurredAt,
		)
		return nil
	}, opts...)
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func normalizeMetadata(event auth.ActivityEvent, redact []string) map[string]any {
	metadata := maps.Clone(event.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	for _, key := range redact {
		delete(metadata, key)
	}

	if event.Reason != "" {
		metadata[MetadataKeyReason] = string(event.Reason)
		metadata[MetadataKeyOutcome] = "rejected"
	} else {
		metadata[MetadataKeyOutcome] = "success"
	}

	return metadata
}
