package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRoundTrip(t *testing.T) {
	signer := NewTicketSigner("secret", time.Minute)
	token, expiresAt, err := signer.Issue("job-1", "2026-07-01/job-1.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	ticket, err := signer.Redeem(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", ticket.JobID)
	assert.Equal(t, "2026-07-01/job-1.csv", ticket.File)
}

func TestTicketRejectsTamperedToken(t *testing.T) {
	signer := NewTicketSigner("secret", time.Minute)
	token, _, err := signer.Issue("job-1", "bundle.json")
	require.NoError(t, err)

	_, err = signer.Redeem(token+"x", false)
	require.Error(t, err)

	// A token signed with a different secret never redeems.
	other := NewTicketSigner("other-secret", time.Minute)
	foreign, _, err := other.Issue("job-1", "bundle.json")
	require.NoError(t, err)
	_, err = signer.Redeem(foreign, false)
	require.Error(t, err)
}

func TestTicketRejectsExpired(t *testing.T) {
	signer := NewTicketSigner("secret", time.Minute)
	signer.ttl = -time.Minute
	token, _, err := signer.Issue("job-1", "bundle.json")
	require.NoError(t, err)

	_, err = signer.Redeem(token, false)
	require.Error(t, err)

	ticket, err := signer.Redeem(token, true)
	require.NoError(t, err)
	assert.Equal(t, "bundle.json", ticket.File)
}
