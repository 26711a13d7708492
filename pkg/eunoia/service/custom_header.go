package service

import "context"

// DefaultHeaders adds Headers to every request. A header already set on the request wins.
type DefaultHeaders struct {
	Headers map[string]string
}

func (a *DefaultHeaders) AddOption(h HTTP) HTTP {
	return &customHeader{
		Headers: a.Headers,
		HTTP:    h,
	}
}

type customHeader struct {
	Headers map[string]string

	HTTP
}

func (a *customHeader) Send(ctx context.Context, req Request) Result {
	req.Headers = setCustomHeader(req.Headers, a.Headers)

	return a.HTTP.Send(ctx, req)
}

func setCustomHeader(headers, customHeader map[string]string) map[string]string {
	merged := make(map[string]string, len(headers)+len(customHeader))

	for key, value := range customHeader {
		merged[key] = value
	}

	for key, value := range headers {
		merged[key] = value
	}

	return merged
}
