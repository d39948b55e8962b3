package host

import (
	"context"
	"errors"
	"testing"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.events = append(p.events, event)
	return map[string]any{"id": "evt-1", "queued": true}, nil
}

func TestEventsPublishDeliversPayloadCopy(t *testing.T) {
	publisher := &recordingPublisher{}
	bridge := NewBridge().MustRegisterEvents("events", publisher)
	c := newTestContext(t)
	bridge.Install(c)

	v, err := c.Eval(context.Background(), `
var payload = {user: "ada", tags: ["a", "b"], meta: {n: 1}};
var receipt = events.publish("user.created", payload);
payload.user = "changed";
receipt.id + ":" + receipt.queued`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := v.String(); got != "evt-1:true" {
		t.Fatalf("unexpected receipt %q", got)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Topic != "user.created" || event.RunID != c.RunID() {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Payload["user"] != "ada" {
		t.Fatalf("payload must be copied at publish time, got %v", event.Payload["user"])
	}
	tags, ok := event.Payload["tags"].([]any)
	if !ok || len(tags) != 2 || tags[1] != "b" {
		t.Fatalf("unexpected tags %#v", event.Payload["tags"])
	}
}

func TestEventsPublishRejectsNonData(t *testing.T) {
	publisher := &recordingPublisher{}
	bridge := NewBridge().MustRegisterEvents("events", publisher)
	c := newTestContext(t)
	bridge.Install(c)

	cases := map[string]string{
		"missing topic":   `events.publish("", {})`,
		"array payload":   `events.publish("t", [1])`,
		"function inside": `events.publish("t", {cb: function() {}})`,
		"cycle":           `var o = {}; o.self = o; events.publish("t", o)`,
	}
	for name, source := range cases {
		v, err := c.Eval(context.Background(), "try { "+source+"; 'ok'; } catch (e) { e.name; }")
		if err != nil {
			t.Fatalf("%s: eval failed: %v", name, err)
		}
		if got := v.String(); got != "TypeError" {
			t.Fatalf("%s: expected TypeError, got %q", name, got)
		}
	}
	if len(publisher.events) != 0 {
		t.Fatalf("rejected payloads must not reach the publisher")
	}
}

func TestEventsPublisherErrorIsCatchable(t *testing.T) {
	sentinel := errors.New("broker unavailable")
	bridge := NewBridge().MustRegisterEvents("bus", PublisherFunc(func(ctx context.Context, event Event) (any, error) {
		return nil, sentinel
	}))
	c := newTestContext(t)
	bridge.Install(c)

	v, err := c.Eval(context.Background(), `try { bus.publish("t", {}); } catch (e) { e.message; }`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := v.String(); got != "broker unavailable" {
		t.Fatalf("unexpected message %q", got)
	}

	_, err = c.Eval(context.Background(), `bus.publish("t", {})`)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel through uncaught error, got %v", err)
	}
}

func TestRegisterEventsValidation(t *testing.T) {
	if err := NewBridge().RegisterEvents("events", nil); err == nil {
		t.Fatalf("expected nil publisher error")
	}
	if err := NewBridge().RegisterEvents("bad name", &recordingPublisher{}); err == nil {
		t.Fatalf("expected invalid name error")
	}
	bridge := NewBridge().MustRegisterEvents("events", &recordingPublisher{})
	if err := bridge.RegisterEvents("events", &recordingPublisher{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
