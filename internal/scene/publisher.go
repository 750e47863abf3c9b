package scene

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yegors/routemap/internal/mapview"
	"github.com/yegors/routemap/internal/websocket"
	"github.com/yegors/routemap/pkg/logger"
)

// Message types sent by Publisher
const (
	MessageScene       = "scene"
	MessageSceneUpdate = "scene_update"
)

// Broadcaster sends a message to every connected client
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Publisher watches the engine and broadcasts the scene of one container
// whenever it actually changes
type Publisher struct {
	engine    *Engine
	container mapview.Container
	sink      Broadcaster
	interval  time.Duration
	logger    *logger.Logger

	mu       sync.Mutex
	detector *ChangeDetector
}

// NewPublisher creates a publisher. interval is the minimum time between two
// broadcasts; bursts of changes within it are sent as one update.
func NewPublisher(engine *Engine, container mapview.Container, sink Broadcaster, interval time.Duration, logger *logger.Logger) *Publisher {
	return &Publisher{
		engine:    engine,
		container: container,
		sink:      sink,
		interval:  interval,
		logger:    logger.Named("scene-publisher"),
		detector:  NewChangeDetector(logger),
	}
}

// Current returns the full scene as a message, or nil while nothing is mounted
func (p *Publisher) Current() *websocket.Message {
	s, err := p.engine.Snapshot(p.container)
	if err != nil {
		return nil
	}
	return &websocket.Message{Type: MessageScene, Data: s}
}

// Run publishes until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) {
	updates, cancel := p.engine.Subscribe()
	defer cancel()

	p.logger.Info("Publishing scene", logger.String("container", string(p.container)))

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
		}

		p.publish()

		if p.interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
			}
		}
	}
}

func (p *Publisher) publish() {
	s, err := p.engine.Snapshot(p.container)
	if errors.Is(err, ErrNoView) {
		return
	}
	if err != nil {
		p.logger.Error("Failed to snapshot scene", logger.Error(err))
		return
	}

	p.mu.Lock()
	changes := p.detector.DetectChanges(s)
	p.mu.Unlock()

	if len(changes) == 0 {
		return
	}

	p.logger.Debug("Scene changed", logger.Int("changes", len(changes)))

	p.sink.Broadcast(&websocket.Message{
		Type: MessageSceneUpdate,
		Data: map[string]interface{}{
			"changes": changes,
			"scene":   s,
		},
	})
}
