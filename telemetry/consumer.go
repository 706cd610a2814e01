package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"lakegrid/storage"
)

const DefaultTopic = "drones/+/state"

// DroneState is the JSON payload drones publish with every position update.
type DroneState struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Battery  float64 `json:"battery"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Heading  float64 `json:"heading"`
	VideoURL string  `json:"video_url"`
}

// ZoneResolver maps a geographic coordinate to the zone identifier of the
// containing grid cell. A miss is fine, drones may operate outside the grid.
type ZoneResolver func(point orb.Point) (string, bool)

// Consumer subscribes to drone state updates, resolves each position to its
// grid zone and persists the result. Store writes run behind a circuit
// breaker so a flapping database does not pile up goroutines in the MQTT
// callback.
type Consumer struct {
	client  mqtt.Client
	topic   string
	store   storage.DroneStore
	resolve ZoneResolver
	breaker *gobreaker.CircuitBreaker
}

// Connect establishes the MQTT connection with exponential backoff.
func Connect(brokerURL string, clientID string) (mqtt.Client, error) {
	options := mqtt.NewClientOptions()
	options.AddBroker(brokerURL)
	options.SetClientID(clientID)
	options.SetCleanSession(true)

	var client mqtt.Client
	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		client = mqtt.NewClient(options)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			sigolo.Warnf("Connecting to MQTT broker %s failed: %v", brokerURL, token.Error())
			return token.Error()
		}
		return nil
	}, retryPolicy)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to MQTT broker %s", brokerURL)
	}

	sigolo.Infof("Connected to MQTT broker %s", brokerURL)

	return client, nil
}

func NewConsumer(client mqtt.Client, topic string, store storage.DroneStore, resolve ZoneResolver) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		store:   store,
		resolve: resolve,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "drone-store",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Consume subscribes to the drone state topic and blocks until the context
// is cancelled.
func (c *Consumer) Consume(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, 1, func(client mqtt.Client, message mqtt.Message) {
		err := c.HandleState(message.Payload())
		if err != nil {
			sigolo.Errorf("Handling drone state from topic %s failed: %+v", message.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "unable to subscribe to topic %s", c.topic)
	}

	sigolo.Infof("Subscribed to topic %s", c.topic)

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
	return nil
}

// HandleState processes one drone state payload.
func (c *Consumer) HandleState(payload []byte) error {
	var state DroneState
	err := json.Unmarshal(payload, &state)
	if err != nil {
		return errors.Wrap(err, "invalid drone state payload")
	}
	if state.ID == "" {
		return errors.New("drone state without id")
	}

	// A dangling or missing zone is tolerated, the position is stored anyway.
	zoneID := ""
	if c.resolve != nil {
		zoneID, _ = c.resolve(orb.Point{state.Lon, state.Lat})
	}

	status := state.Status
	if status == "" {
		status = "IDLE"
	}

	drone := &storage.Drone{
		ID:        state.ID,
		Status:    status,
		Battery:   state.Battery,
		ZoneID:    zoneID,
		Lat:       state.Lat,
		Lon:       state.Lon,
		Heading:   state.Heading,
		VideoURL:  state.VideoURL,
		UpdatedAt: time.Now(),
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.UpsertDrone(drone)
	})

	return errors.Wrapf(err, "unable to persist state of drone %s", state.ID)
}
