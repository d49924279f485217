package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContextFallsBackToBase(t *testing.T) {
	if FromContext(context.Background()) != Log() {
		t.Fatal("expected base logger for a bare context")
	}

	scoped := zap.NewExample()
	ctx := NewContext(context.Background(), scoped)
	if FromContext(ctx) != scoped {
		t.Fatal("expected the logger stored in the context")
	}
}

func TestInitReplacesBaseLogger(t *testing.T) {
	before := Log()
	t.Cleanup(func() { baseLogger = before })

	flush, err := Init("test")
	if err != nil {
		t.Fatal(err)
	}
	if Log() == before {
		t.Fatal("Init should install a new base logger")
	}
	if With(zap.String("k", "v")) == Log() {
		t.Fatal("With should return a child logger")
	}
	_ = flush()
}
