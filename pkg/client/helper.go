package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
)

// APIError is any non-challenge error response from the server.
type APIError struct {
	StatusCode    int
	Type          string
	Message       string
	CorrelationID string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error: '%s' (type: %s, correlation: %s)", e.Message, e.Type, e.CorrelationID)
}

func (c *Client) get(ctx context.Context, url string, result any) (string, error) {
	return c.send(ctx, "GET", url, nil, result)
}

func (c *Client) post(ctx context.Context, url string, payload, result any) (string, error) {
	return c.send(ctx, "POST", url, payload, result)
}

func (c *Client) patch(ctx context.Context, url string, payload, result any) (string, error) {
	return c.send(ctx, "PATCH", url, payload, result)
}

// send performs a request and, if the server answers with a step-up
// challenge, reacquires the token and replays the request exactly once.
// A second challenge on the replay is terminal.
func (c *Client) send(ctx context.Context, method, url string, payload, result any) (string, error) {
	correlation, err := c.roundTrip(ctx, method, url, payload, result)

	var challenge *Challenge
	if !errors.As(err, &challenge) {
		return correlation, err
	}
	if c.auth == nil {
		return correlation, err
	}

	if err := c.reauthenticate(ctx, challenge); err != nil {
		return correlation, &StepUpFailedError{Challenge: challenge, Err: err}
	}

	// The replay runs on its own deadline, detached from the caller's. An
	// interactive sign-in can easily outlast the original request budget,
	// and a successful sign-in must not be wasted on an expired context.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.replayTimeout)
	defer cancel()

	correlation, err = c.roundTrip(rctx, method, url, payload, result)
	if errors.As(err, &challenge) {
		return correlation, &StepUpFailedError{Challenge: challenge, Err: challenge}
	}
	return correlation, err
}

// reauthenticate satisfies a step-up challenge: silent reacquisition first,
// then a single interactive sign-in. The interactive step runs on its own
// bounded timeout so a short request deadline cannot cut off the user
// mid sign-in.
func (c *Client) reauthenticate(ctx context.Context, challenge *Challenge) error {
	token, err := c.auth.Silent(ctx, challenge.Scopes, challenge.ClaimsChallenge)
	if err == nil {
		c.setToken(token)
		return nil
	}
	if !errors.Is(err, ErrInteractionRequired) {
		return fmt.Errorf("silent token acquisition: %w", err)
	}

	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.interactiveTimeout)
	defer cancel()

	token, err = c.auth.Interactive(ictx, challenge.Scopes, challenge.ClaimsChallenge)
	if err != nil {
		return fmt.Errorf("interactive sign-in: %w", err)
	}
	c.setToken(token)
	return nil
}

// roundTrip performs a single request. The body is rebuilt from the payload
// on every call so the request can be replayed.
func (c *Client) roundTrip(ctx context.Context, method, url string, payload, result any) (string, error) {
	var body io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return correlationFromResponse(resp), parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return correlationFromResponse(resp), fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return correlationFromResponse(resp), nil
}

func parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}

	var envelope presenter.ErrorEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		if challenge := challengeFromEnvelope(resp.StatusCode, envelope); challenge != nil {
			return challenge
		}
		return APIError{
			StatusCode:    envelope.Error.Code,
			Type:          envelope.Error.Type,
			Message:       envelope.Error.Message,
			CorrelationID: correlationFromResponse(resp),
		}
	}

	return fmt.Errorf("api error: *unparsed '%s' (status %d)", string(body), resp.StatusCode)
}

func correlationFromResponse(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("X-Correlation-ID")
}
