package ble

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ble2mqtt/internal/device"
)

// recorderQueueSize is the capacity of the journal write queue.
// Advertisements arrive at radio pace; entries beyond this backlog are
// dropped rather than ever stalling the caller.
const recorderQueueSize = 256

// journalEntry is one queued write. A nil chars slice records a device
// sighting; a non-nil one records a characteristic batch.
type journalEntry struct {
	addr  device.MAC
	name  string
	rssi  int16
	chars []device.Characteristic
	seen  int64
}

// Recorder passively journals BLE devices and characteristics seen by
// the bridge. It is called by the Bridge on advertisements and on
// completed service discovery, building a database of the neighbourhood
// over time.
//
// Recording is asynchronous: callers enqueue onto a buffered channel
// and a single writer goroutine performs the SQLite upserts, so the
// bridge dispatch goroutine never waits on the disk. When the queue is
// full the entry is dropped and counted.
//
// The journal is diagnostic only: the bridge never reads it back, and
// recording failures never affect bridging.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	db        *sql.DB
	queue     chan journalEntry
	queueSize int
	dropped   atomic.Uint64

	// Prepared once in Start; used only by the writer goroutine after
	// that, closed in Stop after the writer has exited.
	deviceUpsertStmt *sql.Stmt
	charUpsertStmt   *sql.Stmt

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRecorder creates a new discovery recorder.
// The database must have the ble_devices and ble_characteristics
// tables created (see migrations).
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{
		db:        db,
		queueSize: recorderQueueSize,
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

// Start prepares the upsert statements and launches the writer
// goroutine. Must be called before RecordDevice or
// RecordCharacteristics; calls before Start are silently dropped.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	deviceStmt, err := r.db.Prepare(`
		INSERT INTO ble_devices (address, name, rssi, first_seen, last_seen, sighting_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(address) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
			rssi = excluded.rssi,
			last_seen = excluded.last_seen,
			sighting_count = sighting_count + 1
	`)
	if err != nil {
		return fmt.Errorf("preparing device upsert statement: %w", err)
	}

	charStmt, err := r.db.Prepare(`
		INSERT INTO ble_characteristics (address, service_uuid, characteristic_uuid, properties, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address, service_uuid, characteristic_uuid) DO UPDATE SET
			properties = excluded.properties,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		deviceStmt.Close()
		return fmt.Errorf("preparing characteristic upsert statement: %w", err)
	}

	r.deviceUpsertStmt = deviceStmt
	r.charUpsertStmt = charStmt
	r.queue = make(chan journalEntry, r.queueSize)
	r.started = true

	r.wg.Add(1)
	go r.writeLoop()

	r.log("discovery recorder started", "queue_size", r.queueSize)
	return nil
}

// Stop drains the queued entries, stops the writer goroutine and
// releases the statements. Safe to call multiple times; recordings
// after Stop are dropped.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		started := r.started
		r.mu.Unlock()

		close(r.done)
		if !started {
			return
		}
		r.wg.Wait()

		r.deviceUpsertStmt.Close()
		r.charUpsertStmt.Close()

		r.log("discovery recorder stopped", "dropped", r.dropped.Load())
	})
}

// RecordDevice records a device sighting from an advertisement.
// Called by the Bridge for every discovery event; never blocks.
func (r *Recorder) RecordDevice(addr device.MAC, name string, rssi int16) {
	r.enqueue(journalEntry{addr: addr, name: name, rssi: rssi, seen: time.Now().Unix()})
}

// RecordCharacteristics records a device's discovered characteristic
// set. Called by the Bridge after GATT discovery completes; never
// blocks.
func (r *Recorder) RecordCharacteristics(addr device.MAC, chars []device.Characteristic) {
	if len(chars) == 0 {
		return
	}
	r.enqueue(journalEntry{addr: addr, chars: chars, seen: time.Now().Unix()})
}

// Dropped returns the number of entries discarded on a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// enqueue hands an entry to the writer goroutine without blocking.
func (r *Recorder) enqueue(e journalEntry) {
	r.mu.Lock()
	ready := r.started
	r.mu.Unlock()
	if !ready {
		return
	}

	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.queue <- e:
	default:
		r.logWarn("journal entry dropped, queue full", "dropped", r.dropped.Add(1))
	}
}

// writeLoop is the single writer. On shutdown it finishes whatever is
// already queued before exiting, so Stop acts as a flush.
func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

// write performs the upsert for one entry.
func (r *Recorder) write(e journalEntry) {
	if e.chars == nil {
		if _, err := r.deviceUpsertStmt.Exec(e.addr.String(), e.name, e.rssi, e.seen, e.seen); err != nil {
			r.logError("recording device", err)
		}
		return
	}

	for _, ch := range e.chars {
		if _, err := r.charUpsertStmt.Exec(e.addr.String(), ch.Service.String(), ch.UUID.String(), int(ch.Properties), e.seen); err != nil {
			r.logError("recording characteristic", err)
		}
	}
}

// log logs an info message if logger is set.
func (r *Recorder) log(msg string, keysAndValues ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (r *Recorder) logWarn(msg string, keysAndValues ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error if logger is set.
func (r *Recorder) logError(msg string, err error) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
