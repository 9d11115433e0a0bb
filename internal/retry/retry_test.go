package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/taust/internal/logger"
)

func fastOptions() Options {
	return Options{
		ConnectTimeout: 500 * time.Millisecond,
		RetryInterval:  5 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestConnectSucceedsAfterRetries(t *testing.T) {
	log := logger.New("error", false)
	calls := 0
	ping := func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	if err := Connect(context.Background(), "redis", "localhost:6379", ping, fastOptions(), log); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("ping called %d times, want 3", calls)
	}
}

func TestConnectTimesOut(t *testing.T) {
	log := logger.New("error", false)
	cause := errors.New("connection refused")
	opts := fastOptions()
	opts.ConnectTimeout = 60 * time.Millisecond

	err := Connect(context.Background(), "database", "db", func(ctx context.Context) error { return cause }, opts, log)
	if err == nil {
		t.Fatal("Connect() should fail when ping never succeeds")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Connect() error = %v, want it to wrap the last ping error", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{name: "valid", mutate: func(o *Options) {}},
		{name: "zero connect timeout", mutate: func(o *Options) { o.ConnectTimeout = 0 }, wantErr: true},
		{name: "zero retry interval", mutate: func(o *Options) { o.RetryInterval = 0 }, wantErr: true},
		{name: "zero max wait", mutate: func(o *Options) { o.MaxWait = 0 }, wantErr: true},
		{name: "zero ping timeout", mutate: func(o *Options) { o.PingTimeout = 0 }, wantErr: true},
		{name: "negative warn threshold", mutate: func(o *Options) { o.WarnThreshold = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := fastOptions()
			tt.mutate(&o)
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
