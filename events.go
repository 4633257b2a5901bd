package rigid

import (
	"unsafe"

	"github.com/akmonengine/rigid/actor"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
)

type pairKey struct {
	bodyA *actor.Body
	bodyB *actor.Body
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB *actor.Body) pairKey {
	ptrA := uintptr(unsafe.Pointer(bodyA))
	ptrB := uintptr(unsafe.Pointer(bodyB))

	if ptrB < ptrA {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

type EventType uint8

func (t EventType) String() string {
	switch t {
	case COLLISION_ENTER:
		return "enter"
	case COLLISION_STAY:
		return "stay"
	case COLLISION_EXIT:
		return "exit"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// CollisionEnterEvent is sent on the first step two bodies touch.
// Surface is the last contact found during the step, its normal points from BodyA to BodyB.
type CollisionEnterEvent struct {
	BodyA   *actor.Body
	BodyB   *actor.Body
	Surface *actor.ContactSurface
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA   *actor.Body
	BodyB   *actor.Body
	Surface *actor.ContactSurface
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

type activeContact struct {
	bodyA   *actor.Body
	bodyB   *actor.Body
	surface *actor.ContactSurface
}

// Events collects contacts during a step and dispatches Enter/Stay/Exit events once the
// step is over. Listeners run on the goroutine calling World.Step.
type Events struct {
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]activeContact
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 64),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]activeContact),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContacts is called after each substep. Contacts found in several substeps of
// the same step count once.
func (e *Events) recordContacts(contacts []Contact) {
	for _, c := range contacts {
		e.currentActivePairs[makePairKey(c.BodyA, c.BodyB)] = activeContact{
			bodyA:   c.BodyA,
			bodyB:   c.BodyB,
			surface: c.Surface,
		}
	}
}

// forget drops every pair involving body, without an Exit event.
func (e *Events) forget(body *actor.Body) {
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
func (e *Events) processCollisionEvents() {
	for pair, contact := range e.currentActivePairs {
		if e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionStayEvent{
				BodyA:   contact.bodyA,
				BodyB:   contact.bodyB,
				Surface: contact.surface,
			})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{
				BodyA:   contact.bodyA,
				BodyB:   contact.bodyB,
				Surface: contact.surface,
			})
		}
	}

	for pair := range e.previousActivePairs {
		if _, ok := e.currentActivePairs[pair]; !ok {
			e.buffer = append(e.buffer, CollisionExitEvent{
				BodyA: pair.bodyA,
				BodyB: pair.bodyB,
			})
		}
	}

	clear(e.previousActivePairs)
	for pair := range e.currentActivePairs {
		e.previousActivePairs[pair] = true
	}
	clear(e.currentActivePairs)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
