package authsdk

import (
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// Transport is an http.RoundTripper that makes an ordinary http.Client
// speak authenticated Harbor: it attaches the cached bearer token, and on
// a 401 it silently exchanges the refresh token for a new pair and retries
// the request once.
//
// Auth endpoints (login, refresh, register, admin seed) bypass the
// pipeline entirely; they authenticate by credential, not bearer token.
//
// The refresh path never surfaces its own failure: the caller always
// receives the original 401 response. When the server actively refuses
// the exchange the session is dead, so the transport clears it and runs
// OnForcedLogout; when the refresh call merely cannot be completed (no
// session, network error) the cached pair is left alone.
type Transport struct {
	// Base performs the actual requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// OnForcedLogout runs after a refused refresh exchange has cleared the
	// session, once per refusal. Optional; UIs hook it to navigate back to
	// their anonymous entry point.
	OnForcedLogout func()

	client   *SDKClient
	cache    *SessionCache
	identity *IdentityState

	group singleflight.Group
}

// NewTransport builds a Transport. base may be nil to use
// http.DefaultTransport. identity may be nil when the caller does not
// track a principal.
func NewTransport(
	base http.RoundTripper,
	client *SDKClient,
	cache *SessionCache,
	identity *IdentityState,
) *Transport {
	return &Transport{
		Base:     base,
		client:   client,
		cache:    cache,
		identity: identity,
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isExemptPath(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	ctx := req.Context()

	access, _, err := t.cache.Tokens(ctx)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, err
	}

	// RoundTrippers must not mutate the caller's request.
	first := cloneWithBearer(req, access)

	resp, err := t.base().RoundTrip(first)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	newAccess, ok := t.refresh(ctx)
	if !ok {
		return resp, nil
	}

	retry, ok := rewindRequest(req)
	if !ok {
		// Body already consumed and not replayable; the 401 stands.
		return resp, nil
	}

	// The original response body is dead weight once we retry.
	drainAndClose(resp.Body)

	return t.base().RoundTrip(cloneWithBearer(retry, newAccess))
}

// refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share one exchange through the singleflight group. Returns the
// new access token, or ok=false when no refresh was possible.
func (t *Transport) refresh(ctx context.Context) (string, bool) {
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		_, refreshToken, err := t.cache.Tokens(ctx)
		if err != nil || refreshToken == "" {
			return "", errors.New("no refresh token")
		}

		resp, err := t.client.Refresh(ctx, refreshToken)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// The server refused the exchange. The stored pair can never
			// work again, so drop it and tell the application.
			t.forceLogout(ctx)
			return "", err
		}
		if err != nil || resp.AccessToken == "" {
			return "", errors.New("refresh exchange unavailable")
		}

		if t.identity != nil {
			if err := t.identity.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
				return "", err
			}
		} else if err := t.cache.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
			return "", err
		}
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", false
	}
	return v.(string), true
}

// forceLogout clears the session and notifies the application. Runs
// inside the singleflight group, so concurrent waiters on the same failed
// refresh observe a single logout.
func (t *Transport) forceLogout(ctx context.Context) {
	if t.identity != nil {
		_ = t.identity.Clear(ctx)
	} else {
		_ = t.cache.Clear(ctx)
	}
	if t.OnForcedLogout != nil {
		t.OnForcedLogout()
	}
}

// cloneWithBearer returns a shallow clone carrying the bearer token. An
// empty token leaves the Authorization header untouched.
func cloneWithBearer(req *http.Request, access string) *http.Request {
	clone := req.Clone(req.Context())
	if access != "" {
		clone.Header.Set("Authorization", "Bearer "+access)
	}
	return clone
}

// rewindRequest produces a request whose body can be sent again. Requests
// without a body always qualify; requests with a body need GetBody, which
// net/http populates for the common in-memory body types.
func rewindRequest(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}

	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, true
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
