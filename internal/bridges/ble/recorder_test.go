package ble

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/nerrad567/ble2mqtt/internal/device"
)

// journalSchema mirrors the migration files; kept inline so these
// tests run against an in-memory database.
const journalSchema = `
CREATE TABLE ble_devices (
    address TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    rssi INTEGER NOT NULL DEFAULT 0,
    first_seen INTEGER NOT NULL,
    last_seen INTEGER NOT NULL,
    sighting_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE ble_characteristics (
    address TEXT NOT NULL,
    service_uuid TEXT NOT NULL,
    characteristic_uuid TEXT NOT NULL,
    properties INTEGER NOT NULL DEFAULT 0,
    last_seen INTEGER NOT NULL,
    PRIMARY KEY (address, service_uuid, characteristic_uuid)
);
`

func testJournalDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	// One connection: each sqlite :memory: connection is its own
	// database, so the pool must never open a second one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(journalSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestRecorderDeviceUpsert(t *testing.T) {
	db := testJournalDB(t)
	r := NewRecorder(db)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	addr := mustMAC(t, "AABBCCDDEEFF")
	r.RecordDevice(addr, "sensor", -60)
	r.RecordDevice(addr, "", -72)      // empty name must not erase the stored one
	r.RecordDevice(addr, "hrm-2", -55) // newer name wins

	// Stop drains the queue, so the rows are visible afterwards.
	r.Stop()

	var name string
	var rssi, count int
	err := db.QueryRow(`SELECT name, rssi, sighting_count FROM ble_devices WHERE address = ?`,
		addr.String()).Scan(&name, &rssi, &count)
	if err != nil {
		t.Fatalf("querying journal: %v", err)
	}
	if name != "hrm-2" {
		t.Errorf("name = %q, want %q", name, "hrm-2")
	}
	if rssi != -55 {
		t.Errorf("rssi = %d, want -55", rssi)
	}
	if count != 3 {
		t.Errorf("sighting_count = %d, want 3", count)
	}
}

func TestRecorderCharacteristics(t *testing.T) {
	db := testJournalDB(t)
	r := NewRecorder(db)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	addr := mustMAC(t, "AABBCCDDEEFF")
	svc := mustUUID(t, "180d")
	chars := []device.Characteristic{
		{Service: svc, UUID: mustUUID(t, "2a37"), Properties: device.PropertyRead | device.PropertyNotify},
		{Service: svc, UUID: mustUUID(t, "2a39"), Properties: device.PropertyWrite},
	}

	r.RecordCharacteristics(addr, chars)
	r.RecordCharacteristics(addr, chars) // re-discovery upserts, no duplicates

	r.Stop()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ble_characteristics`).Scan(&count); err != nil {
		t.Fatalf("querying journal: %v", err)
	}
	if count != 2 {
		t.Errorf("characteristic rows = %d, want 2", count)
	}

	var props int
	err := db.QueryRow(`SELECT properties FROM ble_characteristics
		WHERE address = ? AND characteristic_uuid = ?`,
		addr.String(), "2a37").Scan(&props)
	if err != nil {
		t.Fatalf("querying properties: %v", err)
	}
	if device.Properties(props) != device.PropertyRead|device.PropertyNotify {
		t.Errorf("properties = %#x, want read|notify", props)
	}
}

func TestRecorderNotStartedIsNoop(t *testing.T) {
	db := testJournalDB(t)
	r := NewRecorder(db)

	// Calls before Start must be silently ignored, not panic.
	r.RecordDevice(mustMAC(t, "AABBCCDDEEFF"), "x", -50)
	r.RecordCharacteristics(mustMAC(t, "AABBCCDDEEFF"), nil)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ble_devices`).Scan(&count); err != nil {
		t.Fatalf("querying journal: %v", err)
	}
	if count != 0 {
		t.Errorf("rows = %d, want 0", count)
	}
}

func TestRecorderNeverBlocksWhenSaturated(t *testing.T) {
	db := testJournalDB(t)
	r := NewRecorder(db)
	r.queueSize = 1
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Hold the pool's only connection so the writer stalls mid-upsert
	// and the queue stays full.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	addr := mustMAC(t, "AABBCCDDEEFF")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 8; i++ {
			r.RecordDevice(addr, "sensor", -60)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordDevice blocked on a full queue")
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}
	r.Stop()

	if got := r.Dropped(); got == 0 {
		t.Error("Dropped() = 0, want entries discarded on a full queue")
	}

	// Whatever made it through the queue is journaled.
	var count int
	if err := db.QueryRow(`SELECT sighting_count FROM ble_devices WHERE address = ?`,
		addr.String()).Scan(&count); err != nil {
		t.Fatalf("querying journal: %v", err)
	}
	if count < 1 || count >= 8 {
		t.Errorf("sighting_count = %d, want at least 1 and fewer than 8", count)
	}
}

func TestRecorderStopThenRecord(t *testing.T) {
	db := testJournalDB(t)
	r := NewRecorder(db)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	r.Stop()

	// Recording after Stop is a no-op.
	r.RecordDevice(mustMAC(t, "AABBCCDDEEFF"), "x", -50)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ble_devices`).Scan(&count); err != nil {
		t.Fatalf("querying journal: %v", err)
	}
	if count != 0 {
		t.Errorf("rows = %d, want 0", count)
	}
}
