package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"ttscraper/pkg/errors"
	"ttscraper/pkg/models"
)

// FetchPage performs exactly one signed request for one page and classifies
// the result. It never retries; that is the caller's policy.
func (c *Client) FetchPage(ctx context.Context, req models.PageRequest) models.PageResult {
	log := c.logger.WithFields(map[string]interface{}{
		"handle": string(req.Handle),
		"cursor": req.Cursor,
		"count":  req.PageSize,
	})

	token, err := c.signer.Sign(XTTParams(req))
	if err != nil {
		log.WithError(err).Warn("Failed to sign page request")
		if apiErr, ok := errors.AsError(err); ok && apiErr.Type == errors.ErrorTypeSigningFailed {
			return models.Failure(apiErr)
		}
		return models.Failure(errors.Wrap(errors.ErrorTypeSigningFailed, err, "failed to sign request"))
	}

	resp, err := c.get(ctx, GetItemListURL(c.baseURL), map[string]string{"x-tt-params": string(token)})
	if err != nil {
		apiErr, ok := errors.AsError(err)
		if !ok {
			apiErr = errors.Wrap(errors.ErrorTypeNetwork, err, "request failed")
		}
		return models.Failure(apiErr)
	}

	result := classifyPage(resp.status, resp.body)
	switch result.Outcome {
	case models.OutcomeSuccess:
		log.DebugWithFields("Page fetched", map[string]interface{}{
			"items":    len(result.Items),
			"has_more": result.HasMore,
		})
	case models.OutcomeEmpty:
		log.Debug("Empty page")
	default:
		log.WithError(result.Err).WarnWithFields("Page fetch failed", map[string]interface{}{
			"status":  resp.status,
			"outcome": result.Outcome.String(),
			"body":    preview(resp.body),
		})
	}
	return result
}

// classifyPage turns a status code and body into a PageResult
func classifyPage(status int, body []byte) models.PageResult {
	trimmed := bytes.TrimSpace(body)

	// The not-found application code is honoured whatever the HTTP status
	if len(trimmed) > 0 {
		var probe struct {
			StatusCode int `json:"statusCode"`
		}
		if json.Unmarshal(trimmed, &probe) == nil && probe.StatusCode == StatusItemNotFound {
			return models.Failure(errors.New(errors.ErrorTypeNotFound, StatusItemNotFound, "item not found"))
		}
	}

	if apiErr := statusError(status); apiErr != nil {
		return models.Failure(apiErr)
	}

	if len(trimmed) == 0 {
		return models.Empty()
	}

	var page models.ItemListResponse
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return models.Failure(errors.Wrap(errors.ErrorTypeParsing, err, fmt.Sprintf("malformed page (status %d)", status)))
	}

	if len(page.ItemList) == 0 {
		return models.Empty()
	}

	var next *int
	if page.Cursor != 0 {
		n := int(page.Cursor)
		next = &n
	}
	return models.Success(page.ItemList, next, page.HasMore)
}
