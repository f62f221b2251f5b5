package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-rental-store/internal/mailer"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueEmail = "jobs:email"

// Job is the envelope stored in Redis lists
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// Dispatcher enqueues email jobs; the worker pool dequeues them with BRPOP
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// SendEmail queues msg for asynchronous delivery
func (d *Dispatcher) SendEmail(ctx context.Context, msg mailer.Message) error {
	return d.enqueue(ctx, QueueEmail, Job{Type: "email"}, msg)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Sender delivers an email message
type Sender interface {
	Send(msg mailer.Message) error
}

// InlineSender delivers immediately on the calling goroutine. Used when Redis is not configured.
type InlineSender struct {
	Mailer Sender
}

func (s InlineSender) SendEmail(_ context.Context, msg mailer.Message) error {
	return s.Mailer.Send(msg)
}

// LogSender only logs messages. Used when SMTP is not configured.
type LogSender struct{}

func (LogSender) SendEmail(_ context.Context, msg mailer.Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.Text).Msg("email (smtp disabled)")
	return nil
}

func (LogSender) Send(msg mailer.Message) error {
	return LogSender{}.SendEmail(context.Background(), msg)
}

// Pool consumes queued jobs with a fixed number of goroutines
type Pool struct {
	rdb        *redis.Client
	sender     Sender
	maxAttempt int
	pollWait   time.Duration
	retryWait  time.Duration
	maxBackoff time.Duration
}

func NewPool(rdb *redis.Client, sender Sender) *Pool {
	return &Pool{
		rdb:        rdb,
		sender:     sender,
		maxAttempt: 3,
		pollWait:   5 * time.Second,
		retryWait:  time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Start launches n workers that stop when ctx is cancelled
func (p *Pool) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", n)
}

func (p *Pool) run(ctx context.Context, id int) {
	backoff := p.retryWait
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
		}

		// blocks up to pollWait so ctx is checked regularly
		result, err := p.rdb.BRPop(ctx, p.pollWait, QueueEmail).Result()
		switch {
		case errors.Is(err, redis.Nil):
			backoff = p.retryWait
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			log.Warn().Err(err).Int("worker", id).Dur("backoff", backoff).Msg("queue poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, p.maxBackoff)
		case len(result) == 2:
			backoff = p.retryWait
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var msg mailer.Message
	if err := json.Unmarshal(job.Payload, &msg); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("invalid email payload")
		return
	}
	if msg.To == "" {
		log.Warn().Msg("email job without recipient, skipping")
		return
	}

	if err := p.sender.Send(msg); err != nil {
		job.Attempt++
		if job.Attempt >= p.maxAttempt {
			log.Error().Err(err).Str("to", msg.To).Int("attempt", job.Attempt).Msg("email dropped after retries")
			return
		}
		log.Warn().Err(err).Str("to", msg.To).Int("attempt", job.Attempt).Msg("email failed, requeueing")
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Err(err).Str("to", msg.To).Msg("failed to encode job for requeue")
			return
		}
		if err := p.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("to", msg.To).Msg("requeue failed, email lost")
		}
		return
	}
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
}
