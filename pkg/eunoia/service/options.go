package service

import "net/http"

// Options decorates an HTTP transport. Options are applied in the order given to NewHTTPService.
type Options interface {
	AddOption(HTTP) HTTP
}

type WithCustomClient struct {
	Client *http.Client
}

func (w *WithCustomClient) AddOption(svc HTTP) HTTP {
	if hs := extractHTTPService(svc); hs != nil && w.Client != nil {
		hs.Client = w.Client
	}

	return svc
}

// extractHTTPService walks the decorator chain down to the base transport.
func extractHTTPService(h HTTP) *httpService {
	switch v := h.(type) {
	case *httpService:
		return v
	case *customHeader:
		return extractHTTPService(v.HTTP)
	case *customHealthService:
		return extractHTTPService(v.HTTP)
	case *rateLimiter:
		return extractHTTPService(v.HTTP)
	default:
		return nil
	}
}
