package metaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/adpulse/adsync/pkg/tracing"
)

// maxBatchSize is the Graph API's hard cap on requests per batch envelope
const maxBatchSize = 50

// BatchRequest is one sub-request inside a batch envelope
type BatchRequest struct {
	Method      string `json:"method"`
	RelativeURL string `json:"relative_url"`
	Body        string `json:"body,omitempty"`
}

// BatchResponse is one sub-response. Body is a JSON string that the caller
// decodes against the shape it asked for; a nil entry means the sub-request
// was not processed.
type BatchResponse struct {
	Code int    `json:"code"`
	Body string `json:"body"`
}

// IsError reports whether the sub-response carries an error status
func (r *BatchResponse) IsError() bool {
	return r.Code >= 400
}

// DecodeBody unmarshals the sub-response body into dest. Error bodies decode
// into an APIError.
func (r *BatchResponse) DecodeBody(dest any) error {
	if r.IsError() {
		return decodeAPIError(r.Code, []byte(r.Body))
	}
	return json.Unmarshal([]byte(r.Body), dest)
}

// Batch sends up to 50 sub-requests in one envelope. The outer request uses
// the normal retry loop; sub-request failures come back per-entry so one bad
// row never fails its siblings.
func (c *Client) Batch(ctx context.Context, requests []BatchRequest) ([]*BatchResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.Batch")
	defer span.End()

	if len(requests) == 0 {
		return nil, nil
	}
	if len(requests) > maxBatchSize {
		return nil, fmt.Errorf("batch too large: %d requests (max %d)", len(requests), maxBatchSize)
	}

	payload, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	form := url.Values{}
	form.Set("batch", string(payload))
	form.Set("include_headers", "false")

	body, err := c.do(ctx, "POST", "", nil, form)
	if err != nil {
		return nil, err
	}

	var responses []*BatchResponse
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	if len(responses) != len(requests) {
		return nil, fmt.Errorf("batch response count mismatch: sent %d, got %d", len(requests), len(responses))
	}

	return responses, nil
}
