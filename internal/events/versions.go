package events

import "sync"

// Versions is an observable per-resource version counter. Mutations bump the
// counter of the collection they changed and list views watching that
// collection re-fetch.
type Versions struct {
	mu       sync.Mutex
	versions map[string]uint64
	bus      *EventBus
}

func NewVersions(bus *EventBus) *Versions {
	return &Versions{versions: make(map[string]uint64), bus: bus}
}

// Bump increments the version of resource and publishes resource_changed.
func (v *Versions) Bump(resource, action, id string) uint64 {
	v.mu.Lock()
	v.versions[resource]++
	version := v.versions[resource]
	v.mu.Unlock()

	_ = v.bus.PublishJSON(EventResourceChanged, ResourceChangedPayload{
		Resource: resource,
		Version:  version,
		Action:   action,
		ID:       id,
	})
	return version
}

// Current returns the last published version of resource.
func (v *Versions) Current(resource string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[resource]
}

// Watch calls fn each time resource is bumped. The returned func stops watching.
func (v *Versions) Watch(resource string, fn func(version uint64)) func() {
	if v == nil || v.bus == nil {
		return func() {}
	}
	return v.bus.Subscribe(EventResourceChanged, func(event *Event) error {
		var payload ResourceChangedPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		if payload.Resource == resource {
			fn(payload.Version)
		}
		return nil
	})
}
