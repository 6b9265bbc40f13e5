package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadTicket is the decoded content of a signed export download token.
type DownloadTicket struct {
	JobID     string
	File      string
	ExpiresAt time.Time
}

// TicketSigner mints and validates HMAC download tokens for rendered
// export files. The token itself is the download credential, so signed
// links work without an Authorization header.
type TicketSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTicketSigner builds a signer with the given secret and token lifetime.
func NewTicketSigner(secret string, ttl time.Duration) *TicketSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TicketSigner{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for one rendered export file.
func (s *TicketSigner) Issue(jobID, file string) (string, time.Time, error) {
	if jobID == "" || file == "" {
		return "", time.Time{}, fmt.Errorf("job id and file required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expires := time.Now().Add(s.ttl)
	body := strings.Join([]string{
		jobID,
		strconv.FormatInt(expires.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(file)),
	}, ".")
	return body + "." + s.sign(body), expires, nil
}

// Redeem validates a token and returns the ticket inside it. Expired
// tokens pass only when allowExpired is set (cleanup paths).
func (s *TicketSigner) Redeem(token string, allowExpired bool) (*DownloadTicket, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("malformed download token")
	}
	body := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.sign(body)), []byte(parts[3])) {
		return nil, fmt.Errorf("download token signature mismatch")
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("download token timestamp: %w", err)
	}
	file, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("download token path: %w", err)
	}

	ticket := &DownloadTicket{JobID: parts[0], File: string(file), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && time.Now().After(ticket.ExpiresAt) {
		return nil, fmt.Errorf("download token expired")
	}
	return ticket, nil
}

func (s *TicketSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
