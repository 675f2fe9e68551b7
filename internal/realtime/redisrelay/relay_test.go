package redisrelay

import (
	"encoding/json"
	"testing"

	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/realtime"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	organizationID string
	event          domain.RealtimeEvent
	data           string
}

type recordingPublisher struct {
	calls []published
}

func (p *recordingPublisher) Publish(organizationID string, event domain.RealtimeEvent, payload any) {
	data, _ := json.Marshal(payload)
	p.calls = append(p.calls, published{organizationID, event, string(data)})
}

func newTestRelay(local LocalPublisher) *Relay {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	return newRelay(local, client, Config{}, nil)
}

func TestRelay_Defaults(t *testing.T) {
	r := newTestRelay(&recordingPublisher{})
	defer r.Close()

	assert.Equal(t, DefaultChannel, r.channel)
	assert.NotEmpty(t, r.origin)
	assert.Positive(t, r.timeout)
}

func TestRelay_EncodeRoundTripsThroughDeliver(t *testing.T) {
	sender := newTestRelay(&recordingPublisher{})
	defer sender.Close()
	local := &recordingPublisher{}
	receiver := newTestRelay(local)
	defer receiver.Close()

	msg, err := sender.encode("org-1", domain.RealtimeServiceUpdated, map[string]string{"status": "major_outage"})
	require.NoError(t, err)

	receiver.deliver(string(msg))

	require.Len(t, local.calls, 1)
	assert.Equal(t, "org-1", local.calls[0].organizationID)
	assert.Equal(t, domain.RealtimeServiceUpdated, local.calls[0].event)
	assert.JSONEq(t, `{"status":"major_outage"}`, local.calls[0].data)
}

func TestRelay_DeliverSkipsOwnAndInvalid(t *testing.T) {
	local := &recordingPublisher{}
	r := newTestRelay(local)
	defer r.Close()

	own, err := r.encode("org-1", domain.RealtimeIncidentCreated, "x")
	require.NoError(t, err)

	r.deliver(string(own))
	r.deliver("not json")
	r.deliver(`{"origin":"other","event":"incident-created","data":{}}`)

	assert.Empty(t, local.calls)
}

func TestRelay_DeliversIntoHub(t *testing.T) {
	hub := realtime.NewHub(realtime.HubConfig{}, nil)
	sub := hub.NewSubscriber()
	require.NoError(t, hub.Subscribe(sub, "org-1"))

	r := newTestRelay(hub)
	defer r.Close()

	r.deliver(`{"origin":"another-instance","organization_id":"org-1","event":"incident-updated","data":{"status":"resolved"}}`)

	select {
	case frame := <-sub.Messages():
		var msg realtime.Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		assert.Equal(t, domain.RealtimeIncidentUpdated, msg.Event)
		assert.JSONEq(t, `{"status":"resolved"}`, string(msg.Data))
	default:
		t.Fatal("expected relayed message")
	}
}
