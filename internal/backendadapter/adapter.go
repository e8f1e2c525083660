package backendadapter

import (
	"context"
	"errors"
	"net/http"
)

// fetchTimeout backs Fetch's deadline. It is a var rather than using
// DefaultFetchTimeout directly so tests can shrink it instead of waiting out
// the real 30 seconds.
var fetchTimeout = DefaultFetchTimeout

// Fetch dispatches to the adapter named by cfg.Type, per spec §4.1. The
// outbound call is bounded by DefaultFetchTimeout; an adapter that is still
// running when the deadline lapses surfaces as a BackendError with
// ErrTimeout rather than whatever raw context error the SDK or http.Client
// it used happened to return.
func Fetch(ctx context.Context, cfg *Config, httpClient *http.Client) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var (
		res *Result
		err error
	)
	switch cfg.Type {
	case KindLocal:
		res, err = FetchLocal(ctx, cfg)
	case KindS3:
		res, err = FetchS3(ctx, cfg)
	case KindAzure:
		res, err = FetchAzure(ctx, cfg)
	case KindGCS:
		res, err = FetchGCS(ctx, cfg)
	case KindRemote:
		res, err = FetchRemote(ctx, cfg, httpClient)
	default:
		return nil, newError(ErrUnsupported, "unsupported backend configuration type %q", cfg.Type)
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, newError(ErrTimeout, "backend fetch exceeded %s", DefaultFetchTimeout)
	}
	return res, err
}
