// Package heartbeat records that a gateway is running and where it listens,
// so client commands can find it without a config file.
package heartbeat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dohr-michael/askbetter/internal/config"
)

// Liveness of a gateway as seen through its heartbeat file.
type Liveness string

const (
	Alive Liveness = "alive"
	Stale Liveness = "stale"
	Down  Liveness = "down"
)

// DefaultInterval is how often a running gateway refreshes its beat.
const DefaultInterval = 30 * time.Second

// Beat is the content of the heartbeat file.
type Beat struct {
	PID       int       `json:"pid"`
	URL       string    `json:"url"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// Uptime is the time between start and the last beat.
func (b Beat) Uptime() time.Duration {
	return b.Timestamp.Sub(b.StartedAt).Truncate(time.Second)
}

// Path returns the heartbeat file of the gateway: $ASKBETTER_PATH/gateway.json.
func Path() string {
	return filepath.Join(config.HomePath(), "gateway.json")
}

// Writer refreshes a heartbeat file until stopped.
type Writer struct {
	path string
	beat Beat
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start writes a first beat for the gateway at url, then refreshes it
// every interval.
func Start(path string, interval time.Duration, url, model string) *Writer {
	now := time.Now()
	w := &Writer{
		path: path,
		beat: Beat{PID: os.Getpid(), URL: url, Model: model, StartedAt: now},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	w.write(now)

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				w.write(t)
			case <-w.stop:
				return
			}
		}
	}()
	return w
}

// Stop ends the refresh loop and removes the file.
func (w *Writer) Stop() {
	w.once.Do(func() {
		close(w.stop)
		<-w.done
		os.Remove(w.path)
	})
}

func (w *Writer) write(now time.Time) {
	w.beat.Timestamp = now
	data, err := json.MarshalIndent(w.beat, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	os.Rename(tmp, w.path)
}

// Read loads the heartbeat file. A beat older than maxAge is Stale; a
// missing file is Down with a nil beat.
func Read(path string, maxAge time.Duration) (Liveness, *Beat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Down, nil, nil
	}
	if err != nil {
		return Down, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var b Beat
	if err := json.Unmarshal(data, &b); err != nil {
		return Down, nil, fmt.Errorf("decode heartbeat: %w", err)
	}
	if time.Since(b.Timestamp) > maxAge {
		return Stale, &b, nil
	}
	return Alive, &b, nil
}
