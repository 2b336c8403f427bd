package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so the port is left unset
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
		KeyPrefix:    "test",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func testRecord(phoneNumber string) storage.UsageRecord {
	goal := int64(120)
	return storage.UsageRecord{
		PhoneNumber:         phoneNumber,
		Date:                time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
		TotalScreenTimeMs:   16_620_000,
		SocialMediaTimeMs:   7_800_000,
		EntertainmentTimeMs: 4_800_000,
		GoalTime:            &goal,
		AppUsage: storage.AppUsage{
			{Package: "com.zhiliaoapp.musically", Ms: 3_000_000},
			{Package: "com.instagram.android", Ms: 5_100_000},
		},
	}
}

func TestOpen_InvalidTimeout(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := Open(config.RedisConfig{
		Host:         mr.Addr(),
		DialTimeout:  "soon",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	})
	if err == nil {
		t.Fatal("Expected error for invalid dial_timeout")
	}
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(config.RedisConfig{
		Host:         addr,
		DialTimeout:  "200ms",
		ReadTimeout:  "200ms",
		WriteTimeout: "200ms",
	})
	if err == nil {
		t.Fatal("Expected error connecting to a closed server")
	}
}

func TestUsageStore_PutAndFind(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usageStore := store.Usage()

	record := testRecord("+15551234567")
	if err := usageStore.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !mr.Exists("test:usage:+15551234567") {
		t.Error("Expected usage key to exist")
	}
	if ok, _ := mr.SIsMember("test:usage:index", "+15551234567"); !ok {
		t.Error("Expected phone number in usage index")
	}

	retrieved, err := usageStore.FindByPhoneNumber(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("FindByPhoneNumber failed: %v", err)
	}

	if retrieved.PhoneNumber != record.PhoneNumber {
		t.Errorf("Expected PhoneNumber %s, got %s", record.PhoneNumber, retrieved.PhoneNumber)
	}
	if retrieved.TotalScreenTimeMs != record.TotalScreenTimeMs {
		t.Errorf("Expected TotalScreenTimeMs %d, got %d", record.TotalScreenTimeMs, retrieved.TotalScreenTimeMs)
	}
	if retrieved.GoalTime == nil || *retrieved.GoalTime != 120 {
		t.Errorf("Expected GoalTime 120, got %v", retrieved.GoalTime)
	}
	if len(retrieved.AppUsage) != 2 {
		t.Fatalf("Expected 2 apps, got %d", len(retrieved.AppUsage))
	}
	// Document order survives the round trip
	if retrieved.AppUsage[0].Package != "com.zhiliaoapp.musically" {
		t.Errorf("Expected first app com.zhiliaoapp.musically, got %s", retrieved.AppUsage[0].Package)
	}
	if date, ok := retrieved.Date.(string); !ok || date != "2024-03-09T00:00:00Z" {
		t.Errorf("Expected date 2024-03-09T00:00:00Z, got %v", retrieved.Date)
	}
}

func TestUsageStore_FindExactMatchOnly(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usageStore := store.Usage()

	_ = usageStore.Put(ctx, testRecord("+15551234567"))

	for _, phone := range []string{"5551234567", "+1555123456", "+155512345678"} {
		_, err := usageStore.FindByPhoneNumber(ctx, phone)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("FindByPhoneNumber(%q): expected ErrNotFound, got %v", phone, err)
		}
	}
}

func TestUsageStore_PutReplaces(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usageStore := store.Usage()

	record := testRecord("+15551234567")
	_ = usageStore.Put(ctx, record)

	record.TotalScreenTimeMs = 60_000
	record.AppUsage = nil
	if err := usageStore.Put(ctx, record); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	retrieved, err := usageStore.FindByPhoneNumber(ctx, record.PhoneNumber)
	if err != nil {
		t.Fatalf("FindByPhoneNumber failed: %v", err)
	}
	if retrieved.TotalScreenTimeMs != 60_000 {
		t.Errorf("Expected TotalScreenTimeMs 60000, got %d", retrieved.TotalScreenTimeMs)
	}
	if len(retrieved.AppUsage) != 0 {
		t.Errorf("Expected no apps, got %d", len(retrieved.AppUsage))
	}
}

func TestUsageStore_PutRequiresPhoneNumber(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	if err := store.Usage().Put(context.Background(), storage.UsageRecord{}); err == nil {
		t.Error("Expected error for record without phone number")
	}
}

func TestUsageStore_LenientDocument(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	// Written by another client with string numbers and a Firestore-style timestamp
	_ = mr.Set("test:usage:+15550000000", `{"totalScreenTime":"120000","date":{"_seconds":1710000000},"appUsage":{"com.a":"bad"}}`)

	retrieved, err := store.Usage().FindByPhoneNumber(context.Background(), "+15550000000")
	if err != nil {
		t.Fatalf("FindByPhoneNumber failed: %v", err)
	}
	if retrieved.PhoneNumber != "+15550000000" {
		t.Errorf("Expected PhoneNumber from key, got %q", retrieved.PhoneNumber)
	}
	if retrieved.TotalScreenTimeMs != 120_000 {
		t.Errorf("Expected TotalScreenTimeMs 120000, got %d", retrieved.TotalScreenTimeMs)
	}
	if len(retrieved.AppUsage) != 1 || retrieved.AppUsage[0].Ms != 0 {
		t.Errorf("Expected one app with zero ms, got %+v", retrieved.AppUsage)
	}
}

func TestUsageStore_CorruptDocument(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	_ = mr.Set("test:usage:+15550000000", `not json`)

	_, err := store.Usage().FindByPhoneNumber(context.Background(), "+15550000000")
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestUsageStore_ServerDown(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	mr.Close()

	_, err := store.Usage().FindByPhoneNumber(context.Background(), "+15551234567")
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected connection error, got %v", err)
	}
}

func TestTaglineStore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	taglines := store.Taglines()

	list, err := taglines.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no taglines, got %d", len(list))
	}

	if err := taglines.Add(ctx, "Touch grass.", "Screens off.", "Touch grass."); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := taglines.Add(ctx); err != nil {
		t.Fatalf("Empty Add failed: %v", err)
	}

	list, err = taglines.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 taglines, got %d", len(list))
	}
	if list[0] != "Screens off." || list[1] != "Touch grass." {
		t.Errorf("Expected sorted taglines, got %v", list)
	}
}

func TestStore_Probe(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	result, err := store.Probe(ctx, 5)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if result.SampledDocuments != 0 || result.Sample != nil {
		t.Errorf("Expected empty probe, got %+v", result)
	}

	_ = store.Usage().Put(ctx, testRecord("+15551234567"))
	_ = store.Usage().Put(ctx, testRecord("+15557654321"))

	result, err = store.Probe(ctx, 5)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if result.Backend != "redis" {
		t.Errorf("Expected backend redis, got %s", result.Backend)
	}
	if result.SampledDocuments != 2 {
		t.Errorf("Expected 2 sampled documents, got %d", result.SampledDocuments)
	}
	if result.Sample == nil {
		t.Fatal("Expected a sample record")
	}
}
