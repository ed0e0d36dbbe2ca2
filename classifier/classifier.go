// Package classifier dispatches message digests to the external
// judgment oracle and maps its answers to relocation decisions.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"phishmail/models"
)

// Digest is the per-message payload sent to the oracle.
type Digest struct {
	SenderName          string   `json:"sender_name"`
	SenderEmail         string   `json:"sender_email"`
	RecipientName       string   `json:"recipient_name"`
	RecipientEmail      string   `json:"recipient_email"`
	Subject             string   `json:"subject"`
	Body                string   `json:"body"`
	AttachmentFilenames []string `json:"attachment_filenames"`
}

type predictRequest struct {
	Emails []Digest `json:"emails"`
}

type predictResponse struct {
	Verdicts []models.Verdict `json:"verdicts"`
}

// Client is a stateless dispatcher for the classification oracle.
//
// It fails open: transport failure, timeout or a malformed response
// yields a legit verdict, never an error. A false quarantine is
// costlier than a transient missed detection, and the sync loop never
// re-classifies an already-seen message, so failing closed would turn
// one oracle outage into long-lived misfiled mail.
type Client struct {
	url    string
	http   *http.Client
	logger *log.Logger
}

func New(url string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Classify sends one message digest to the oracle and returns its
// verdict.
func (c *Client) Classify(ctx context.Context, sum models.MessageSummary) models.Verdict {
	payload, err := json.Marshal(predictRequest{Emails: []Digest{DigestFor(sum)}})
	if err != nil {
		return c.failOpen(fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return c.failOpen(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failOpen(fmt.Sprintf("oracle unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.failOpen(fmt.Sprintf("oracle returned status %d", resp.StatusCode))
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return c.failOpen(fmt.Sprintf("malformed oracle response: %v", err))
	}
	if len(parsed.Verdicts) == 0 {
		return c.failOpen("oracle returned no verdict")
	}

	verdict := parsed.Verdicts[0]
	verdict.Verdict = normalizeVerdict(verdict.Verdict)
	if verdict.Verdict == "" {
		return c.failOpen("oracle returned unrecognized verdict")
	}
	if verdict.Confidence == "" {
		verdict.Confidence = "medium"
	}
	if verdict.Reasons == nil {
		verdict.Reasons = []string{}
	}
	return verdict
}

// DigestFor builds the oracle payload for one message.
func DigestFor(sum models.MessageSummary) Digest {
	return Digest{
		SenderName:          sum.SenderName,
		SenderEmail:         sum.SenderEmail,
		RecipientName:       sum.RecipientName,
		RecipientEmail:      sum.RecipientEmail,
		Subject:             sum.Subject,
		Body:                sum.Body,
		AttachmentFilenames: sum.AttachmentNames,
	}
}

func (c *Client) failOpen(reason string) models.Verdict {
	c.logger.Printf("classification failed open: %s", reason)
	return models.Verdict{
		Verdict:    models.VerdictLegit,
		Confidence: "low",
		Reasons:    []string{reason},
	}
}

// normalizeVerdict maps the oracle's free-ish verdict strings onto the
// two canonical values. Unknown strings map to empty.
func normalizeVerdict(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.Contains(v, "phish"):
		return models.VerdictPhishing
	case strings.Contains(v, "legit"), strings.Contains(v, "safe"):
		return models.VerdictLegit
	}
	return ""
}
