package health

import (
	"context"
	"errors"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatusReportsBackends(t *testing.T) {
	svc := NewService(
		Check{Name: "kv", Backend: "redis", Pinger: pingerFunc(func(context.Context) error { return nil })},
		Check{Name: "llm", Backend: "openai"},
	)
	st := svc.Status(context.Background())
	if !st.OK {
		t.Fatalf("expected ok")
	}
	if st.Backends["kv"].Backend != "redis" || st.Backends["llm"].Backend != "openai" {
		t.Fatalf("unexpected backends %+v", st.Backends)
	}
}

func TestStatusFailingBackend(t *testing.T) {
	svc := NewService(Check{Name: "kv", Backend: "postgres", Pinger: pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})})
	st := svc.Status(context.Background())
	if st.OK || st.Backends["kv"].OK || st.Backends["kv"].Error != "connection refused" {
		t.Fatalf("unexpected status %+v", st)
	}
}
