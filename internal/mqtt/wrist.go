package mqtt

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mfuentes/smartbed/internal/sensors"
)

// Wristband topics, published by the ESP32 firmware.
const (
	TopicWristBodyTemp = "sensores/temperatura"
	TopicWristHeartBPM = "sensores/bpm_avg"
	TopicWristFinger   = "sensores/finger_status"
	TopicWristAccelX   = "sensores/accel_x"
	TopicWristAccelY   = "sensores/accel_y"
	TopicWristAccelZ   = "sensores/accel_z"
)

// WristStaleAfter is how long a wristband value stays usable. The band
// publishes every few seconds; anything older means the band dropped off.
const WristStaleAfter = 30 * time.Second

// wristValue is one cached channel with its arrival time.
type wristValue struct {
	value float64
	at    time.Time
}

// WristFeed subscribes to the wristband topics and caches the latest
// value per channel. The control loop overlays fresh values onto each
// tick's readings; stale channels are ignored.
type WristFeed struct {
	mu sync.Mutex

	bodyTemp  wristValue
	heartRate wristValue
	accel     [3]wristValue
	finger    bool
	fingerAt  time.Time
}

// NewWristFeed subscribes on an existing MQTT client. The client must
// already be connected.
func NewWristFeed(client paho.Client) (*WristFeed, error) {
	w := &WristFeed{}

	subs := map[string]paho.MessageHandler{
		TopicWristBodyTemp: w.onBodyTemp,
		TopicWristHeartBPM: w.onHeartRate,
		TopicWristFinger:   w.onFinger,
		TopicWristAccelX:   w.onAccel(0),
		TopicWristAccelY:   w.onAccel(1),
		TopicWristAccelZ:   w.onAccel(2),
	}
	for topic, handler := range subs {
		token := client.Subscribe(topic, 0, handler)
		if !token.WaitTimeout(5 * time.Second) {
			return nil, fmt.Errorf("subscribe timeout on %s", topic)
		}
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return w, nil
}

// Overlay copies fresh wristband channels into the readings. Bed-side
// channels are left untouched.
func (w *WristFeed) Overlay(r *sensors.Readings, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if fresh(w.bodyTemp.at, now) {
		r.BodyTemperature = w.bodyTemp.value
	}
	if fresh(w.heartRate.at, now) {
		r.HeartRate = int(w.heartRate.value)
		r.HRValid = true
	}
	if fresh(w.fingerAt, now) {
		r.FingerPresent = w.finger
	}
	if fresh(w.accel[0].at, now) && fresh(w.accel[1].at, now) && fresh(w.accel[2].at, now) {
		r.Acceleration = [3]float64{w.accel[0].value, w.accel[1].value, w.accel[2].value}
		r.AccValid = true
	}
}

func fresh(at, now time.Time) bool {
	return !at.IsZero() && now.Sub(at) <= WristStaleAfter
}

func (w *WristFeed) onBodyTemp(_ paho.Client, msg paho.Message) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.bodyTemp = wristValue{value: v, at: time.Now()}
	w.mu.Unlock()
}

func (w *WristFeed) onHeartRate(_ paho.Client, msg paho.Message) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
	if err != nil || v <= 0 {
		return
	}
	w.mu.Lock()
	w.heartRate = wristValue{value: v, at: time.Now()}
	w.mu.Unlock()
}

// The firmware publishes "detectado" / "no_detectado".
func (w *WristFeed) onFinger(_ paho.Client, msg paho.Message) {
	w.mu.Lock()
	w.finger = strings.TrimSpace(string(msg.Payload())) == "detectado"
	w.fingerAt = time.Now()
	w.mu.Unlock()
}

func (w *WristFeed) onAccel(axis int) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
		if err != nil {
			return
		}
		w.mu.Lock()
		w.accel[axis] = wristValue{value: v, at: time.Now()}
		w.mu.Unlock()
	}
}
