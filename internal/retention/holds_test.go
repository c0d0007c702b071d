package retention

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/pkg/domain"
)

const testChild = "7e6f0c3a-2b44-4bfa-9a01-55d7a9a3c222"

type stubVerifier struct {
	active map[domain.ConsentScope]bool
}

func (v *stubVerifier) Verify(_ context.Context, _ domain.ChildID, scope domain.ConsentScope) (bool, error) {
	return v.active[scope], nil
}

func TestConsentHolds(t *testing.T) {
	child := domain.ChildID(testChild)
	holds := NewConsentHolds(&stubVerifier{active: map[domain.ConsentScope]bool{
		domain.ScopeVoiceRecording: true,
	}})

	held, reason, err := holds.HasHold(context.Background(), child, domain.DataVoiceRecordings)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Contains(t, reason, "voice_recording")

	held, _, err = holds.HasHold(context.Background(), child, domain.DataConversations)
	require.NoError(t, err)
	assert.False(t, held)

	// Consent records are retained for their own window, never held.
	held, _, err = holds.HasHold(context.Background(), child, domain.DataConsentRecords)
	require.NoError(t, err)
	assert.False(t, held)
}
