package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// RequestPricer answers a pricing request
type RequestPricer interface {
	Price(ctx context.Context, req models.PricingRequest) (*models.PricingResult, error)
}

// PricingWorker turns pricing requests into pricing results
type PricingWorker struct {
	consumer *Consumer
	producer *Producer
	pricer   RequestPricer
	log      *logger.Logger
}

// NewPricingWorker creates a worker
func NewPricingWorker(consumer *Consumer, producer *Producer, pricer RequestPricer) *PricingWorker {
	return &PricingWorker{
		consumer: consumer,
		producer: producer,
		pricer:   pricer,
		log:      logger.GetLogger("kafka.worker"),
	}
}

// Run consumes requests until ctx is done
func (w *PricingWorker) Run(ctx context.Context) error {
	err := w.consumer.ConsumeMessages(ctx, w.Handle)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Handle prices one request message and publishes the result. Requests that
// cannot be decoded or priced are answered with a result carrying the error;
// only a failed publish is returned, so the consumer retries the request and
// commits it once the result is published.
func (w *PricingWorker) Handle(ctx context.Context, msg *Message) error {
	result := w.process(ctx, msg)

	key := msg.Key
	if len(key) == 0 && result.TradeID != "" {
		key = []byte(result.TradeID)
	}
	return w.producer.ProduceJSON(ctx, key, result, msg.Headers)
}

func (w *PricingWorker) process(ctx context.Context, msg *Message) *models.PricingResult {
	var req models.PricingRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		w.log.Warnf("Dropping undecodable request at offset %d: %v", msg.Offset, err)
		return failure(req, errors.Wrap(errors.WithType(err, errors.ErrorTypeInvalidArgument), "decode request"))
	}

	result, err := w.pricer.Price(ctx, req)
	if err != nil {
		w.log.Warnf("Request %s for trade %s failed: %v", req.RequestID, req.Trade.ID, err)
		return failure(req, err)
	}
	return result
}

func failure(req models.PricingRequest, err error) *models.PricingResult {
	return &models.PricingResult{
		RequestID:  req.RequestID,
		TradeID:    req.Trade.ID,
		Formula:    req.Formula,
		PriceType:  req.PriceType,
		Error:      err.Error(),
		ComputedAt: time.Now().UTC(),
	}
}
