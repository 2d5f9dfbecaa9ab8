package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/airquality"
)

// Job types accepted on the trigger subscription.
const (
	JobRegionsRefresh = "regions_refresh"
	JobHealthCheck    = "health_check"
)

// errUnknownJob marks messages that are acked without processing.
var errUnknownJob = errors.New("unknown job type")

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// TriggerMessage is the body of a trigger message.
type TriggerMessage struct {
	JobType string `json:"job_type"`
	// Regions limits a regions_refresh to the named regions.
	Regions []string `json:"regions,omitempty"`
}

// Dispatcher runs the job named by a trigger message.
type Dispatcher struct {
	refreshJob *RefreshJob
	refresher  Refresher
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher around the shared refresh job.
func NewDispatcher(job *RefreshJob, refresher Refresher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{refreshJob: job, refresher: refresher, logger: logger}
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		err := h.jobs.Process(ctx, msg.Data)
		switch {
		case errors.Is(err, errUnknownJob):
			// Redelivery would not help.
			logger.Warn().Err(err).Msg("dropping message")
			msg.Ack()
		case err != nil:
			logger.Error().Err(err).Msg("job failed")
			msg.Nack()
		default:
			msg.Ack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Process decodes a trigger message and runs its job. Malformed payloads
// and unknown job types return an error wrapping errUnknownJob.
func (d *Dispatcher) Process(ctx context.Context, data []byte) error {
	startTime := time.Now()

	var msg TriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: parse message: %v", errUnknownJob, err)
	}

	var err error
	switch msg.JobType {
	case JobRegionsRefresh:
		err = d.regionsRefresh(ctx, msg.Regions)
	case JobHealthCheck:
		err = d.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownJob, msg.JobType)
	}
	if err != nil {
		return err
	}

	d.logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return nil
}

func (d *Dispatcher) regionsRefresh(ctx context.Context, names []string) error {
	job := d.refreshJob
	if len(names) > 0 {
		targets := filterTargets(job.Targets(), names)
		if len(targets) == 0 {
			return fmt.Errorf("%w: no known regions in %v", errUnknownJob, names)
		}
		job = NewRefreshJob(RefreshJobConfig{
			Config: RefreshConfig{
				Targets:     targets,
				Concurrency: job.config.Concurrency,
				Timeout:     job.config.Timeout,
			},
			Refresher: d.refresher,
			Logger:    d.logger,
		})
	}

	result := job.Run(ctx)

	// A majority of failures suggests the provider is down; let Pub/Sub retry.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalTargets)
	}
	return nil
}

// healthCheck refreshes London alone to verify provider connectivity.
func (d *Dispatcher) healthCheck(ctx context.Context) error {
	london := airquality.UKRegions[0]

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := d.refresher.Refresh(ctx, london.Coordinate); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

func filterTargets(targets []RefreshTarget, names []string) []RefreshTarget {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []RefreshTarget
	for _, t := range targets {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}
