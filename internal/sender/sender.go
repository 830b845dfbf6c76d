// Package sender writes transformed records to the destination system.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tidwall/gjson"

	"github.com/mrlokans/batchsync/internal/httpclient"
	"github.com/mrlokans/batchsync/internal/mapping"
)

type Requester interface {
	Execute(ctx context.Context, spec httpclient.RequestSpec) ([]byte, error)
}

// SendRequest is one write against the destination.
type SendRequest struct {
	Endpoint       string
	Method         mapping.Method
	Payload        json.RawMessage
	IdempotencyKey string
	DryRun         bool
}

// Response is the outcome of a send. In dry-run mode only DryRun and Payload
// are set.
type Response struct {
	DryRun        bool            `json:"dryRun"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	DestinationID string          `json:"destinationId,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
}

type Sender struct {
	client Requester
}

func New(client Requester) *Sender {
	return &Sender{client: client}
}

// Send performs the write, or only logs it when req.DryRun is set.
func (s *Sender) Send(ctx context.Context, req SendRequest) (*Response, error) {
	if req.DryRun {
		log.Printf("[SENDER] dry-run %s %s idempotency_key=%s payload_bytes=%d",
			req.Method, req.Endpoint, req.IdempotencyKey, len(req.Payload))
		return &Response{DryRun: true, Payload: req.Payload}, nil
	}

	spec := httpclient.RequestSpec{
		Method: string(req.Method),
		Path:   req.Endpoint,
		Headers: map[string]string{
			IdempotencyHeader: req.IdempotencyKey,
		},
	}
	if len(req.Payload) > 0 {
		spec.Body = req.Payload
	}

	body, err := s.client.Execute(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("sending to %s: %w", req.Endpoint, err)
	}

	resp := &Response{DestinationID: destinationID(body)}
	if len(body) > 0 && gjson.ValidBytes(body) {
		resp.Body = body
	}
	return resp, nil
}

// destinationID reads the id the destination assigned, when the response
// body carries one.
func destinationID(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	res := gjson.GetManyBytes(body, "id", "_id", "data.id", "data._id")
	for _, r := range res {
		if r.Exists() && r.Type != gjson.Null && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
