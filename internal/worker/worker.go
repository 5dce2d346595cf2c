package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-rulekit/internal/config"
	"github.com/aescanero/dago-rulekit/internal/telemetry"
	"github.com/aescanero/dago-rulekit/pkg/dsl"
	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// Result statuses
const (
	StatusOK        = "ok"
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
)

// Error stages
const (
	StageRequest     = "request"
	StageStore       = "store"
	StageCondition   = "condition"
	StageApplication = "application"
	StageHook        = "hook"
)

// ErrNoRules is returned when a request arrives before any rule set was loaded
var ErrNoRules = errors.New("no rules loaded")

// Request is a fact evaluation request read from the stream
type Request struct {
	ID    string    `json:"id"`
	Facts dsl.Facts `json:"facts,omitempty"`
}

// Result is published after a successful pass
type Result struct {
	ID        string    `json:"id"`
	PassID    string    `json:"pass_id"`
	Facts     dsl.Facts `json:"facts"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is published when a pass fails
type ErrorEvent struct {
	ID        string    `json:"id"`
	PassID    string    `json:"pass_id"`
	Stage     string    `json:"stage"`
	Rule      string    `json:"rule,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// PassError describes a failed request
type PassError struct {
	PassID string
	Stage  string
	Rule   string
	Err    error
}

func (e *PassError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s failed at rule %s: %v", e.Stage, e.Rule, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// Worker represents the rulekit worker
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	store         FactsStore
	publisher     Publisher
	metrics       *telemetry.Metrics
	engine        atomic.Pointer[rulekit.Engine[dsl.Facts]]
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	started       atomic.Bool
	streamKey     string
	consumerGroup string
	resultStream  string

	newPassID func() string
	now       func() time.Time
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	store FactsStore,
	publisher Publisher,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		store:         store,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
		newPassID:     uuid.NewString,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Reload builds an engine for set and swaps it in. On error the current
// engine stays in place.
func (w *Worker) Reload(set *dsl.RuleSet) error {
	opts := dsl.Options{
		Logger:     w.logger,
		HookPolicy: w.config.HookPolicy(),
		Hooks:      []rulekit.Hook[dsl.Facts]{telemetry.NewLoggingHook[dsl.Facts](w.logger)},
		Observers:  []rulekit.Observer[dsl.Facts]{telemetry.NewObserver[dsl.Facts](w.metrics)},
	}
	if order, ok := w.config.Order(); ok {
		opts.Order = &order
	}

	engine, err := dsl.BuildEngine(set, opts)
	w.metrics.RecordReload(len(set.Rules), err)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	w.engine.Store(engine)

	w.logger.Info("rule engine loaded",
		zap.Int("rules", engine.Len()),
		zap.String("order", engine.Order().String()),
	)
	return nil
}

// Ready reports whether a rule engine is loaded
func (w *Worker) Ready() bool {
	return w.engine.Load() != nil
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting rulekit worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	// Create consumer group if it doesn't exist
	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	// Start processing work
	w.started.Store(true)
	go w.processWork()

	w.logger.Info("rulekit worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker gracefully, waiting for the in-flight message
func (w *Worker) Stop() error {
	w.logger.Info("stopping rulekit worker", zap.String("worker_id", w.id))

	w.cancel()
	if !w.started.Load() {
		return nil
	}

	select {
	case <-w.done:
	case <-time.After(w.config.BlockTime + 2*time.Second):
		return fmt.Errorf("timed out waiting for work loop to stop")
	}

	w.logger.Info("rulekit worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP error means the group already exists, which is fine
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream
func (w *Worker) processWork() {
	defer close(w.done)
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
			streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
				Group:    w.consumerGroup,
				Consumer: w.id,
				Streams:  []string{w.streamKey, ">"},
				Count:    1,
				Block:    w.config.BlockTime,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
					continue
				}
				w.logger.Error("failed to read from stream",
					zap.Error(err),
				)
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					w.handleMessage(w.ctx, message.ID, message.Values)
					w.acknowledgeMessage(message.ID)
				}
			}
		}
	}
}

// handleMessage handles a single fact request. Failures are logged and
// published, never returned: the message is acknowledged either way.
func (w *Worker) handleMessage(ctx context.Context, messageID string, values map[string]interface{}) {
	w.logger.Info("processing fact request",
		zap.String("message_id", messageID),
	)

	request, err := parseRequest(values)
	if err != nil {
		w.logger.Error("failed to parse fact request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return
	}

	result, err := w.Process(ctx, request)
	if err != nil {
		w.logger.Error("failed to process fact request",
			zap.String("message_id", messageID),
			zap.String("id", request.ID),
			zap.Error(err),
		)
		w.publishError(ctx, request, err)
		return
	}

	if err := w.publisher.Publish(ctx, w.resultStream, result); err != nil {
		w.logger.Error("failed to publish result",
			zap.String("id", request.ID),
			zap.Error(err),
		)
		return
	}

	w.logger.Info("published result",
		zap.String("id", result.ID),
		zap.String("pass_id", result.PassID),
		zap.String("status", result.Status),
	)
}

// parseRequest parses a fact request from a Redis message
func parseRequest(values map[string]interface{}) (*Request, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request Request
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fact request: %w", err)
	}

	if request.ID == "" {
		return nil, fmt.Errorf("fact request is missing 'id'")
	}

	return &request, nil
}

// Process runs one evaluation pass for a request and stores the resulting facts.
// Facts are only stored when the pass succeeds.
func (w *Worker) Process(ctx context.Context, request *Request) (*Result, error) {
	passID := w.newPassID()

	engine := w.engine.Load()
	if engine == nil {
		return nil, &PassError{PassID: passID, Stage: StageRequest, Err: ErrNoRules}
	}

	facts := request.Facts
	if facts == nil {
		loaded, err := w.store.Load(ctx, request.ID)
		if err != nil {
			return nil, &PassError{PassID: passID, Stage: StageStore, Err: err}
		}
		facts = loaded
	}

	status := StatusOK
	var err error
	if w.config.EvalMode == config.EvalModeFirst {
		var matched bool
		matched, err = engine.EvaluateFirst(&facts)
		status = StatusUnmatched
		if matched {
			status = StatusMatched
		}
	} else {
		err = engine.EvaluateAll(&facts)
	}
	if err != nil {
		rule, _ := rulekit.RuleName(err)
		return nil, &PassError{PassID: passID, Stage: stageOf(err), Rule: rule, Err: err}
	}

	if err := w.store.Save(ctx, request.ID, facts); err != nil {
		return nil, &PassError{PassID: passID, Stage: StageStore, Err: err}
	}

	return &Result{
		ID:        request.ID,
		PassID:    passID,
		Facts:     facts,
		Status:    status,
		Timestamp: w.now(),
	}, nil
}

// stageOf maps an engine error to the stage that produced it
func stageOf(err error) string {
	switch {
	case rulekit.IsConditionError(err):
		return StageCondition
	case rulekit.IsApplicationError(err):
		return StageApplication
	case rulekit.IsHookError(err):
		return StageHook
	default:
		return StageRequest
	}
}

// publishError publishes an error event
func (w *Worker) publishError(ctx context.Context, request *Request, err error) {
	event := ErrorEvent{
		ID:        request.ID,
		Stage:     StageRequest,
		Error:     err.Error(),
		Timestamp: w.now(),
	}

	var passErr *PassError
	if errors.As(err, &passErr) {
		event.PassID = passErr.PassID
		event.Stage = passErr.Stage
		event.Rule = passErr.Rule
		event.Error = passErr.Err.Error()
	}

	if publishErr := w.publisher.Publish(ctx, w.resultStream+".errors", event); publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	// acks must survive shutdown of the work context
	err := w.redisClient.XAck(context.Background(), w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
