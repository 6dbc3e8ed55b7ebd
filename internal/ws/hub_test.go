package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, "test")
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var e Event
		require.NoError(t, json.Unmarshal(data, &e))
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	h := startHub(t)
	a := NewClient(h, nil, nil)
	b := NewClient(h, nil, nil)
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	h.PublishActivity(domain.ActivityLog{ID: "1", Action: domain.ActionAgentDispatch, Success: true})

	assert.Equal(t, "1", receive(t, a).Payload.ID)
	e := receive(t, b)
	assert.Equal(t, "activity", e.Type)
	assert.Equal(t, domain.ActionAgentDispatch, e.Payload.Action)
}

func TestHub_PrefixFilter(t *testing.T) {
	h := startHub(t)
	agents := NewClient(h, nil, []string{"agent."})
	h.Register(agents)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.PublishActivity(domain.ActivityLog{ID: "img", Action: domain.ActionImageRepair})
	h.PublishActivity(domain.ActivityLog{ID: "ping", Action: domain.ActionAgentPing})

	assert.Equal(t, "ping", receive(t, agents).Payload.ID)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := NewClient(h, nil, nil)
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.unregister <- c

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_StopEndsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := NewHub(nil, "test")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.PublishActivity(domain.ActivityLog{ID: "x", Action: domain.ActionGenerate})
	h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	// Register after Stop must not block
	h.Register(NewClient(h, nil, nil))
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, matchesPrefix("agent.ping", nil))
	assert.True(t, matchesPrefix("image.repair", []string{"agent.", "image."}))
	assert.False(t, matchesPrefix("risk.assess", []string{"agent."}))
}
