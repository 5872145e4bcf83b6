package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const DefaultRequestTimeout = 15 * time.Second

// HTTPClient talks to the provider's REST API. One client serves every
// tenant; the session carries the per-instance route and token.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	inner   *fasthttp.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		timeout: timeout,
		inner: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

type sendTextPayload struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Status string `json:"status"`
	Key    struct {
		ID string `json:"id"`
	} `json:"key"`
	Message string `json:"message,omitempty"`
}

func (c *HTTPClient) SendText(ctx context.Context, session Session, phone, text string) (SendResult, error) {
	body, err := json.Marshal(sendTextPayload{Number: phone, Text: text})
	if err != nil {
		return SendResult{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/message/sendText/%s", c.baseURL, session.InstanceID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("apikey", session.Token)
	req.SetBody(body)

	// fasthttp has no context plumbing; honor whichever deadline is
	// nearer, the context's or the configured timeout.
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	if err := c.inner.DoTimeout(req, resp, timeout); err != nil {
		if err == fasthttp.ErrTimeout {
			return SendResult{}, ErrGatewayTimeout
		}
		return SendResult{}, fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode() >= 300 {
		logrus.Warnf("[GATEWAY] sendText to %s returned HTTP %d", phone, resp.StatusCode())
		return SendResult{Success: false}, nil
	}

	var parsed sendTextResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return SendResult{}, fmt.Errorf("gateway response decode failed: %w", err)
	}

	return SendResult{
		Success:           parsed.Status != "ERROR",
		ProviderMessageID: parsed.Key.ID,
	}, nil
}
