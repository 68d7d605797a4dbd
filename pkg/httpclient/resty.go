package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
}

type Option func(*resty.Client)

func WithBearerToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *resty.Client) {
		c.SetHeader("User-Agent", userAgent)
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(client)
	}

	return &RestyClient{client: client}
}

func (rc *RestyClient) request(ctx context.Context, headers map[string]string, result interface{}) *resty.Request {
	req := rc.client.R().SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}
	if headers != nil {
		req.SetHeaders(headers)
	}
	return req
}

func toBaseResponse(resp *resty.Response) *BaseResponse {
	if resp == nil {
		return &BaseResponse{}
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.request(ctx, headers, result)
	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	resp, err := req.Get(endpoint)
	return toBaseResponse(resp), err
}
