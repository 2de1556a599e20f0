package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "generic error",
			err:  errors.New("some random error"),
			want: false,
		},
		{
			name: "no documents",
			err:  mongo.ErrNoDocuments,
			want: false,
		},
		{
			name: "wrapped no documents",
			err:  fmt.Errorf("load event: %w", mongo.ErrNoDocuments),
			want: false,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "primary stepped down",
			err:  mongo.CommandError{Code: 189, Message: "primary stepped down"},
			want: true,
		},
		{
			name: "shutdown in progress",
			err:  mongo.CommandError{Code: 91, Message: "shutdown in progress"},
			want: true,
		},
		{
			name: "transient label",
			err:  mongo.CommandError{Code: 112, Labels: []string{"TransientTransactionError"}},
			want: true,
		},
		{
			name: "duplicate key is not transient",
			err:  mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"},
			want: false,
		},
		{
			name: "connection reset text",
			err:  errors.New("read tcp: Connection Reset by peer"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsTransient(tt.err)
			if got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRead_RetriesTransientOnce(t *testing.T) {
	calls := 0
	v, err := Read(context.Background(), zap.NewNop(), "test", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, mongo.CommandError{Code: 189}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if v != 42 {
		t.Errorf("value: got %d, want 42", v)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRead_GivesUpAfterSecondFailure(t *testing.T) {
	calls := 0
	_, err := Read(context.Background(), nil, "test", func(context.Context) (int, error) {
		calls++
		return 0, mongo.CommandError{Code: 189}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRead_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	_, err := Read(context.Background(), nil, "test", func(context.Context) (string, error) {
		calls++
		return "", mongo.ErrNoDocuments
	})
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
