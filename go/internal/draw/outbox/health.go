package outbox

import "time"

// HealthStatus summarizes the relay for the info endpoint
type HealthStatus struct {
	Healthy       bool      `json:"healthy"`
	NATSConnected bool      `json:"nats_connected"`
	Published     int       `json:"published"`
	Dropped       int       `json:"dropped"`
	Failed        int       `json:"failed"`
	Queued        int       `json:"queued"`
	LastPublished time.Time `json:"last_published"`
	Errors        []string  `json:"errors,omitempty"`
}

// ConnectionChecker is implemented by publishers that know their link state
type ConnectionChecker interface {
	Connected() bool
}

// Connected reports whether the NATS connection is up
func (p *JetStreamPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Health checks the publisher link and the queue depth
func (r *Relay) Health() HealthStatus {
	r.statsMu.Lock()
	status := HealthStatus{
		Healthy:       true,
		NATSConnected: true,
		Published:     r.published,
		Dropped:       r.dropped,
		Failed:        r.failed,
		Queued:        len(r.queue),
		LastPublished: r.lastPublished,
	}
	r.statsMu.Unlock()

	if checker, ok := r.publisher.(ConnectionChecker); ok && !checker.Connected() {
		status.NATSConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, "NATS disconnected")
	}

	// Check queue backlog
	if status.Queued > cap(r.queue)*3/4 {
		status.Healthy = false
		status.Errors = append(status.Errors, "outbox queue nearly full")
	}

	return status
}
