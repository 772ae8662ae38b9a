package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"gigcal/config"
)

const TypeHoldExpire = "hold:expire"

type holdExpiryPayload struct {
	Date  string `json:"date"`
	Token string `json:"token"`
}

// HoldExpirer removes the hold identified by token if it has lapsed.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, date, token string) (bool, error)
}

func RedisQueueOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// ExpiryQueue schedules a hold:expire task for the instant each hold lapses.
type ExpiryQueue struct {
	client *asynq.Client
}

func NewExpiryQueue(opt asynq.RedisClientOpt) *ExpiryQueue {
	return &ExpiryQueue{client: asynq.NewClient(opt)}
}

func newHoldExpiryTask(date, token string) (*asynq.Task, error) {
	payload, err := json.Marshal(holdExpiryPayload{Date: date, Token: token})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeHoldExpire, payload, asynq.MaxRetry(5)), nil
}

// ScheduleExpiry enqueues the task for at. A renewed hold leaves its earlier
// task in place; that task finds the hold still live and does nothing.
func (q *ExpiryQueue) ScheduleExpiry(ctx context.Context, date, token string, at time.Time) error {
	task, err := newHoldExpiryTask(date, token)
	if err != nil {
		return fmt.Errorf("failed to build expiry task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.ProcessAt(at)); err != nil {
		return fmt.Errorf("failed to enqueue expiry for %s: %w", date, err)
	}
	return nil
}

func (q *ExpiryQueue) Close() error {
	return q.client.Close()
}

// ExpiryWorker consumes hold:expire tasks.
type ExpiryWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewExpiryWorker(opt asynq.RedisClientOpt, svc HoldExpirer, logger *zap.Logger) *ExpiryWorker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHoldExpire, handleHoldExpiry(svc, logger))
	return &ExpiryWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ExpiryWorker) Start() {
	go func() {
		w.logger.Info("[ExpiryWorker] starting async worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Warn("[ExpiryWorker] failed to start worker",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("[ExpiryWorker] giving up; holds will expire through the store only")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

func (w *ExpiryWorker) Shutdown() {
	w.srv.Shutdown()
}

func handleHoldExpiry(svc HoldExpirer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p holdExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("[ExpiryWorker] invalid payload", zap.Error(err))
			return fmt.Errorf("decode %s payload: %v: %w", TypeHoldExpire, err, asynq.SkipRetry)
		}
		if p.Date == "" || p.Token == "" {
			logger.Warn("[ExpiryWorker] incomplete payload", zap.String("date", p.Date))
			return fmt.Errorf("incomplete %s payload: %w", TypeHoldExpire, asynq.SkipRetry)
		}

		removed, err := svc.ExpireHold(ctx, p.Date, p.Token)
		if err != nil {
			logger.Warn("[ExpiryWorker] failed to expire hold", zap.String("date", p.Date), zap.Error(err))
			return err
		}
		logger.Debug("[ExpiryWorker] hold expiry processed",
			zap.String("date", p.Date), zap.Bool("removed", removed))
		return nil
	}
}
