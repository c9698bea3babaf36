// Package eventbus relays game updates between server instances that share a
// MongoDB deployment.
package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameEvent is the document stored in the game_events collection.
type GameEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OriginMachineID string             `bson:"originMachineId"`
	SessionID       string             `bson:"sessionId"`
	Message         []byte             `bson:"message"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// DeliverFunc hands a message to the WebSocket clients of this instance.
type DeliverFunc func(sessionID string, message []byte)

// EventBus publishes game updates to MongoDB and watches for updates made by
// other instances via change streams.
type EventBus struct {
	machineID  string
	collection *mongo.Collection
	deliver    DeliverFunc
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

func generateMachineID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// New creates an EventBus. With a nil collection Publish is a no-op and no
// watcher runs.
func New(collection *mongo.Collection, deliver DeliverFunc) *EventBus {
	return &EventBus{
		machineID:  generateMachineID(),
		collection: collection,
		deliver:    deliver,
	}
}

func (eb *EventBus) MachineID() string {
	return eb.machineID
}

// EnsureIndexes expires relayed events after a minute.
func (eb *EventBus) EnsureIndexes(ctx context.Context) error {
	if eb.collection == nil {
		return nil
	}
	_, err := eb.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(60).
			SetName("ttl_createdAt_60s"),
	})
	return err
}

// Start runs the change stream watcher in a background goroutine.
func (eb *EventBus) Start() {
	if eb.collection == nil {
		log.Println("[EventBus] No collection configured, running in local-only mode")
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.cancelFunc = cancel
	eb.running = true
	eb.wg.Add(1)

	go eb.watchLoop(ctx)
	log.Printf("[EventBus] Started (machineId=%s)", eb.machineID)
}

// Stop cancels the watcher and waits for it to exit.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return
	}
	eb.running = false
	if eb.cancelFunc != nil {
		eb.cancelFunc()
	}
	eb.wg.Wait()
	log.Println("[EventBus] Stopped")
}

// Publish records a game update for the other instances. Errors are logged.
func (eb *EventBus) Publish(sessionID string, message []byte) {
	if eb.collection == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc := GameEvent{
		OriginMachineID: eb.machineID,
		SessionID:       sessionID,
		Message:         message,
		CreatedAt:       time.Now(),
	}
	if _, err := eb.collection.InsertOne(ctx, doc); err != nil {
		log.Printf("[EventBus] Failed to publish update for game %s: %v", sessionID, err)
	}
}

// dispatch delivers an event published elsewhere. It reports whether the
// event was delivered.
func (eb *EventBus) dispatch(event GameEvent) bool {
	// Updates from this machine were delivered when they were made.
	if event.OriginMachineID == eb.machineID || eb.deliver == nil {
		return false
	}
	eb.deliver(event.SessionID, event.Message)
	return true
}

func (eb *EventBus) watchLoop(ctx context.Context) {
	defer eb.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		err := eb.watch(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[EventBus] Change stream error (reconnecting in 2s): %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (eb *EventBus) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
			{Key: "fullDocument.originMachineId", Value: bson.D{{Key: "$ne", Value: eb.machineID}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := eb.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var changeDoc struct {
			FullDocument GameEvent `bson:"fullDocument"`
		}
		if err := cs.Decode(&changeDoc); err != nil {
			log.Printf("[EventBus] Failed to decode change event: %v", err)
			continue
		}
		eb.dispatch(changeDoc.FullDocument)
	}

	return cs.Err()
}
