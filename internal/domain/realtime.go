package domain

// RealtimeEvent names a state change pushed to real-time subscribers.
type RealtimeEvent string

// Real-time events.
const (
	RealtimeServiceUpdated  RealtimeEvent = "service-updated"
	RealtimeIncidentCreated RealtimeEvent = "incident-created"
	RealtimeIncidentUpdated RealtimeEvent = "incident-updated"
)
