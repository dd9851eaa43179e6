package mcp

import (
	"sync"

	"github.com/cskr/pubsub"
)

// registryEvent is published on a session's pubsub topic whenever something
// that session subscribed to changes. ServerSession.deliverLoop (session.go) consumes
// these and turns them into wire notifications.
type registryEvent struct {
	method string
	params any
}

const registryQueueCapacity = 1024

// Registry is the Subscription Registry (spec §3): resource subscriptions,
// tools/prompts list-changed subscribers, and log-message subscribers with
// per-session level thresholds. Delivery is decoupled from bookkeeping via
// github.com/cskr/pubsub: each live session owns one pubsub topic (its
// session id), and the four collections below only decide whether to Pub to
// that topic.
type Registry struct {
	ps *pubsub.PubSub

	mu                 sync.Mutex
	resourceSubs       map[string]map[string]bool // uri -> session ids
	toolsListChanged   map[string]bool            // session ids
	promptsListChanged map[string]bool            // session ids
	logThresholds      map[string]LoggingLevel    // session id -> threshold
	sessionChans       map[string]chan any        // session id -> its pubsub channel
}

// NewRegistry creates an empty Subscription Registry.
func NewRegistry() *Registry {
	return &Registry{
		ps:                 pubsub.New(registryQueueCapacity),
		resourceSubs:       make(map[string]map[string]bool),
		toolsListChanged:   make(map[string]bool),
		promptsListChanged: make(map[string]bool),
		logThresholds:      make(map[string]LoggingLevel),
		sessionChans:       make(map[string]chan any),
	}
}

// sessionChannel returns the channel of registryEvents destined for
// sessionID, registering it with the pubsub bus on first use.
func (r *Registry) sessionChannel(sessionID string) <-chan any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.sessionChans[sessionID]; ok {
		return ch
	}
	ch := r.ps.Sub(sessionID)
	r.sessionChans[sessionID] = ch
	return ch
}

// dropSession scrubs every collection of sessionID and unsubscribes its
// pubsub topic (spec §8 property 4, "subscription scrubbing").
func (r *Registry) dropSession(sessionID string) {
	r.mu.Lock()
	for uri, subs := range r.resourceSubs {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(r.resourceSubs, uri)
		}
	}
	delete(r.toolsListChanged, sessionID)
	delete(r.promptsListChanged, sessionID)
	delete(r.logThresholds, sessionID)
	ch, ok := r.sessionChans[sessionID]
	delete(r.sessionChans, sessionID)
	r.mu.Unlock()
	if ok {
		r.ps.Unsub(ch, sessionID)
	}
}

// SubscribeResource records that sessionID is interested in uri. It does not
// check that the resource exists; callers are expected to validate existence
// themselves (spec §4.4: "Subscribing to a non-existent uri returns -32602").
func (r *Registry) SubscribeResource(sessionID, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resourceSubs[uri] == nil {
		r.resourceSubs[uri] = make(map[string]bool)
	}
	r.resourceSubs[uri][sessionID] = true
}

// UnsubscribeResource removes sessionID's interest in uri.
func (r *Registry) UnsubscribeResource(sessionID, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.resourceSubs[uri]; ok {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(r.resourceSubs, uri)
		}
	}
}

// SubscribeToolsListChanged / SubscribePromptsListChanged register interest
// declared during capability exchange (spec §4.4).
func (r *Registry) SubscribeToolsListChanged(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolsListChanged[sessionID] = true
}

func (r *Registry) SubscribePromptsListChanged(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promptsListChanged[sessionID] = true
}

// SetLogThreshold installs sessionID's per-session log-message threshold
// (spec §4.4 "logging/setLevel"). Default threshold is LevelError.
func (r *Registry) SetLogThreshold(sessionID string, level LoggingLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logThresholds[sessionID] = level
}

// NotifyResourceUpdated publishes notifications/resources/updated to every
// session subscribed to uri (spec §4.4 server-push).
func (r *Registry) NotifyResourceUpdated(uri string, meta map[string]any) {
	r.mu.Lock()
	subs := make([]string, 0, len(r.resourceSubs[uri]))
	for sid := range r.resourceSubs[uri] {
		subs = append(subs, sid)
	}
	r.mu.Unlock()
	params := ResourceUpdatedParams{URI: uri}
	if len(meta) > 0 {
		params.Meta = &Meta{Data: meta}
	}
	for _, sid := range subs {
		r.ps.TryPub(registryEvent{method: "notifications/resources/updated", params: params}, sid)
	}
}

// NotifyToolsListChanged / NotifyPromptsListChanged broadcast to every session
// that declared interest (spec §4.4). The Registry has no resources
// list-changed broadcast.
func (r *Registry) NotifyToolsListChanged() {
	r.broadcast(r.snapshotKeys(r.toolsListChanged), "notifications/tools/list_changed")
}

func (r *Registry) NotifyPromptsListChanged() {
	r.broadcast(r.snapshotKeys(r.promptsListChanged), "notifications/prompts/list_changed")
}

func (r *Registry) snapshotKeys(m map[string]bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (r *Registry) broadcast(sessionIDs []string, method string) {
	for _, sid := range sessionIDs {
		r.ps.TryPub(registryEvent{method: method}, sid)
	}
}

// LogMessage fans out a log message to every session whose threshold is at
// least as severe as level (spec §4.4, §8 property 5). logger is the
// caller-supplied logger name, sent as the notification's "logger" field
// (omitted when empty).
func (r *Registry) LogMessage(level LoggingLevel, logger string, data any) {
	r.mu.Lock()
	recipients := make([]string, 0, len(r.logThresholds))
	for sid, threshold := range r.logThresholds {
		if compareLevels(level, threshold) <= 0 {
			recipients = append(recipients, sid)
		}
	}
	r.mu.Unlock()
	params := LoggingMessageParams{Level: level, Logger: logger, Data: data}
	for _, sid := range recipients {
		r.ps.TryPub(registryEvent{method: "notifications/message", params: params}, sid)
	}
}

// ResourceUpdatedParams is the payload of notifications/resources/updated.
type ResourceUpdatedParams struct {
	URI  string `json:"uri"`
	Meta *Meta  `json:"_meta,omitempty"`
}

// LoggingMessageParams is the payload of notifications/message.
type LoggingMessageParams struct {
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
	Data   any          `json:"data"`
}
