package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/safety"
	"guardian/pkg/domain"
)

func testEvent(severity safety.Severity) *safety.Event {
	return &safety.Event{
		ID:          domain.NewEventID(),
		ChildID:     domain.ChildID("7a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d"),
		Type:        safety.EventInappropriateContent,
		Severity:    severity,
		Description: "blocked message",
		ActionTaken: "message_blocked",
		Timestamp:   time.Now().UTC(),
	}
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	var got alertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), testEvent(safety.SeverityHigh)))
	assert.Equal(t, "inappropriate_content", got.EventType)
	assert.Empty(t, got.EmergencyCopies)
}

func TestWebhookNotifier_CriticalCopiesEmergencyContacts(t *testing.T) {
	var got alertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL, WithEmergencyContacts([]string{"oncall@example.com"}))
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), testEvent(safety.SeverityCritical)))
	assert.Equal(t, []string{"oncall@example.com"}, got.EmergencyCopies)
}

func TestWebhookNotifier_EndpointErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	assert.Error(t, n.Notify(context.Background(), testEvent(safety.SeverityHigh)))
}

func TestWebhookNotifier_CircuitOpensAndFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Error(t, n.Notify(context.Background(), testEvent(safety.SeverityHigh)))
	}
	require.Equal(t, 5, calls)

	// Circuit is open now; the endpoint is no longer hit.
	assert.Error(t, n.Notify(context.Background(), testEvent(safety.SeverityHigh)))
	assert.Equal(t, 5, calls)
}

func TestWebhookNotifier_RequiresURL(t *testing.T) {
	_, err := NewWebhook("")
	assert.Error(t, err)
}
