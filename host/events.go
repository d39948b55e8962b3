package host

import (
	"context"
	"fmt"

	"github.com/mgomes/quillscript/quill"
)

// EventPublisher receives events published by scripts through an events
// namespace installed by RegisterEvents.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) (any, error)
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event Event) (any, error)

func (f PublisherFunc) Publish(ctx context.Context, event Event) (any, error) {
	return f(ctx, event)
}

// Event is one publish call. Payload is a deep copy of the script object, so
// publishers may keep it after the run ends.
type Event struct {
	RunID   string
	Topic   string
	Payload map[string]any
}

// RegisterEvents installs `<name>.publish(topic, payload)`. The payload must
// be plain data: functions and cyclic references are rejected with a
// TypeError before the publisher sees the event. The publisher's result is
// converted back to a script value.
func (b *Bridge) RegisterEvents(name string, publisher EventPublisher) error {
	if publisher == nil {
		return fmt.Errorf("host: events %q requires a non-nil publisher", name)
	}
	method := name + ".publish"
	return b.Register(method, func(call Call) (quill.Value, error) {
		topic := call.Arg(0)
		if topic.Kind() != quill.KindString || topic.Str() == "" {
			return quill.Undefined(), call.Throw("TypeError", "%s expects a non-empty topic string", method)
		}
		payload := call.Arg(1)
		if payload.Kind() != quill.KindObject || payload.Object().Elements() != nil {
			return quill.Undefined(), call.Throw("TypeError", "%s payload must be an object", method)
		}
		if path, ok := dataOnly(payload, "payload", map[*quill.Object]bool{}); !ok {
			return quill.Undefined(), call.Throw("TypeError", "%s %s is not plain data", method, path)
		}
		result, err := publisher.Publish(call.Ctx, Event{
			RunID:   call.Context.RunID(),
			Topic:   topic.Str(),
			Payload: payload.Export().(map[string]any),
		})
		if err != nil {
			return quill.Undefined(), err
		}
		if result == nil {
			return quill.Undefined(), nil
		}
		return call.Context.ToValue(result), nil
	})
}

// MustRegisterEvents registers an events namespace or panics.
func (b *Bridge) MustRegisterEvents(name string, publisher EventPublisher) *Bridge {
	if err := b.RegisterEvents(name, publisher); err != nil {
		panic(err)
	}
	return b
}

// dataOnly walks v and reports the path of the first function or cycle.
func dataOnly(v quill.Value, path string, active map[*quill.Object]bool) (string, bool) {
	switch v.Kind() {
	case quill.KindFunction:
		return path, false
	case quill.KindObject:
	default:
		return "", true
	}
	obj := v.Object()
	if active[obj] {
		return path, false
	}
	active[obj] = true
	defer delete(active, obj)
	if elems := obj.Elements(); elems != nil {
		for i, elem := range elems {
			if p, ok := dataOnly(elem, fmt.Sprintf("%s[%d]", path, i), active); !ok {
				return p, false
			}
		}
		return "", true
	}
	for _, key := range obj.Keys() {
		if p, ok := dataOnly(obj.Get(key), path+"."+key, active); !ok {
			return p, false
		}
	}
	return "", true
}
