package mcp

import (
	"testing"
	"time"
)

func TestRegistryResourceSubscriptionDelivery(t *testing.T) {
	reg := NewRegistry()
	ch := reg.sessionChannel("sess-1")
	reg.SubscribeResource("sess-1", "mem://readme")

	reg.NotifyResourceUpdated("mem://readme", map[string]any{"rev": 2})

	select {
	case ev := <-ch:
		re := ev.(registryEvent)
		if re.method != "notifications/resources/updated" {
			t.Fatalf("method = %q", re.method)
		}
		params, ok := re.params.(ResourceUpdatedParams)
		if !ok {
			t.Fatalf("params is %T", re.params)
		}
		if params.URI != "mem://readme" {
			t.Errorf("URI = %q", params.URI)
		}
		if params.Meta == nil || params.Meta.Data["rev"] != 2 {
			t.Errorf("Meta = %+v", params.Meta)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestRegistryNotifyOnlyReachesSubscribedURI(t *testing.T) {
	reg := NewRegistry()
	ch := reg.sessionChannel("sess-1")
	reg.SubscribeResource("sess-1", "mem://a")

	reg.NotifyResourceUpdated("mem://b", nil)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery for an unsubscribed uri: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegistryUnsubscribeResource(t *testing.T) {
	reg := NewRegistry()
	ch := reg.sessionChannel("sess-1")
	reg.SubscribeResource("sess-1", "mem://readme")
	reg.UnsubscribeResource("sess-1", "mem://readme")

	reg.NotifyResourceUpdated("mem://readme", nil)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery after unsubscribe: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegistryDropSessionScrubsEverything(t *testing.T) {
	reg := NewRegistry()
	reg.sessionChannel("sess-1")
	reg.SubscribeResource("sess-1", "mem://readme")
	reg.SubscribeToolsListChanged("sess-1")
	reg.SubscribePromptsListChanged("sess-1")
	reg.SetLogThreshold("sess-1", LevelDebug)

	reg.dropSession("sess-1")

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.resourceSubs) != 0 {
		t.Errorf("resourceSubs not scrubbed: %v", reg.resourceSubs)
	}
	if len(reg.toolsListChanged) != 0 {
		t.Errorf("toolsListChanged not scrubbed: %v", reg.toolsListChanged)
	}
	if len(reg.promptsListChanged) != 0 {
		t.Errorf("promptsListChanged not scrubbed: %v", reg.promptsListChanged)
	}
	if len(reg.logThresholds) != 0 {
		t.Errorf("logThresholds not scrubbed: %v", reg.logThresholds)
	}
	if len(reg.sessionChans) != 0 {
		t.Errorf("sessionChans not scrubbed: %v", reg.sessionChans)
	}
}

func TestRegistryToolsListChangedBroadcast(t *testing.T) {
	reg := NewRegistry()
	ch := reg.sessionChannel("sess-1")
	reg.SubscribeToolsListChanged("sess-1")

	reg.NotifyToolsListChanged()

	select {
	case ev := <-ch:
		re := ev.(registryEvent)
		if re.method != "notifications/tools/list_changed" {
			t.Fatalf("method = %q", re.method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
