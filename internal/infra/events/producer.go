package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"grocery/internal/domain/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// kafka.Writer のうち使う部分
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 注文イベントを非同期で送る。送信失敗はログだけ残す
type Producer struct {
	w        MessageWriter
	producer string
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	inbox   chan kafka.Message
	done   chan struct{}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewProducer(w MessageWriter, producer string, buf int, logger *slog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		w:        w,
		producer: producer,
		timeout:  5 * time.Second,
		log:      logger,
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
	}
}

// 送信ループを起動する（2回目以降は何もしない）
func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			err := p.w.WriteMessages(ctx, m)
			cancel()
			if err != nil {
				p.log.Error("kafka publish failed", "key", string(m.Key), "err", err)
			}
		}
	}()
}

// 残りを送り切ってから writer を閉じる
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	started := p.started
	p.mu.Unlock()

	// 未起動なら溜まった分は送らずに捨てる
	if started {
		<-p.done
	}
	return p.w.Close()
}

func (p *Producer) OrderPlaced(ctx context.Context, o model.Order) {
	items := make([]OrderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemPayload{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}
	p.publish(ctx, EventOrderPlaced, o.OrderNumber, OrderPlacedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		Total:       o.TotalPrice.StringFixed(2),
		Items:       items,
	})
}

func (p *Producer) OrderStatusChanged(ctx context.Context, o model.Order, from model.OrderStatus, actorUserID int64) {
	p.publish(ctx, EventOrderStatusChanged, o.OrderNumber, OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		From:        string(from),
		To:          string(o.Status),
		ActorUserID: actorUserID,
	})
}

func (p *Producer) publish(ctx context.Context, eventType string, orderNumber string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.ErrorContext(ctx, "encode event payload", "event_type", eventType, "err", err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.producer,
		CorrelationID: orderNumber,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.log.ErrorContext(ctx, "encode event", "event_type", eventType, "err", err)
		return
	}

	msg := kafka.Message{
		// 同じ注文のイベントは同じパーティションへ
		Key:   []byte(orderNumber),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.WarnContext(ctx, "producer closed, event dropped", "event_type", eventType, "order_number", orderNumber)
		return
	}
	select {
	case p.inbox <- msg:
	default:
		p.log.WarnContext(ctx, "event buffer full, event dropped", "event_type", eventType, "order_number", orderNumber)
	}
}
