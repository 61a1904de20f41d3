package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// retryDo executes an HTTP request with exponential backoff. Transport errors,
// 429 and 5xx responses are retried; other responses, and the last attempt's
// response, are returned as is.
// The request body is buffered and replayed on each attempt.
func (c *Client) retryDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	attempts := max(c.maxAttempts, 1)

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
	}

	var lastErr error
	backoff := c.backoff

	for attempt := range attempts {
		if attempt > 0 {
			c.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("path", req.URL.Path).
				Msg("retrying request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == attempts-1 {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		lastErr = nil
	}

	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
