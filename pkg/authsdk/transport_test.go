package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeAuthServer is a minimal token-validating backend: one protected
// endpoint plus a refresh endpoint that rotates the pair.
type fakeAuthServer struct {
	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	rotations     int
	protectedHits int
	deniedHits    int
	refuseRefresh bool

	// beforeRefresh, when set, runs at the top of the refresh handler.
	// Tests use it to coordinate concurrency.
	beforeRefresh func()

	// mintAccess, when set, overrides the access token produced by a
	// rotation.
	mintAccess func(rotation int) string

	// afterRotate, when set, runs under the lock after a rotation, once
	// the response pair has been captured. Tests use it to invalidate the
	// freshly minted token.
	afterRotate func(f *fakeAuthServer)

	srv *httptest.Server
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()

	f := &fakeAuthServer{
		validAccess:  "access-0",
		validRefresh: "refresh-0",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/data", f.handleProtected)
	mux.HandleFunc("POST /v1/data", f.handleProtected)
	mux.HandleFunc("POST "+PathRefresh, f.handleRefresh)
	mux.HandleFunc("POST "+PathLogin, func(w http.ResponseWriter, r *http.Request) {
		// The login path is exempt from the pipeline; it must arrive
		// without a bearer token.
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"succeeded":true}`))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAuthServer) handleProtected(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.protectedHits++
	ok := r.Header.Get("Authorization") == "Bearer "+f.validAccess
	if !ok {
		f.deniedHits++
	}
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"echo": string(body)})
}

func (f *fakeAuthServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if f.beforeRefresh != nil {
		f.beforeRefresh()
	}

	var req RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	if f.refuseRefresh || req.RefreshToken != f.validRefresh {
		f.mu.Unlock()
		ErrInvalidGrant.WriteError(w)
		return
	}

	f.rotations++
	f.validAccess = fmt.Sprintf("access-%d", f.rotations)
	f.validRefresh = fmt.Sprintf("refresh-%d", f.rotations)
	if f.mintAccess != nil {
		f.validAccess = f.mintAccess(f.rotations)
	}
	access, refresh := f.validAccess, f.validRefresh
	if f.afterRotate != nil {
		f.afterRotate(f)
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(LoginResponse{
		GeneralResponse: GeneralResponse{Succeeded: true},
		AccessToken:     access,
		RefreshToken:    refresh,
		ExpiresIn:       1800,
	})
}

func (f *fakeAuthServer) stats() (rotations, protectedHits, deniedHits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotations, f.protectedHits, f.deniedHits
}

// newPipeline builds a client whose requests flow through the Transport.
func newPipeline(f *fakeAuthServer) (*http.Client, *SessionCache, *IdentityState) {
	httpClient, cache, identity, _ := newPipelineTransport(f)
	return httpClient, cache, identity
}

func newPipelineTransport(f *fakeAuthServer) (*http.Client, *SessionCache, *IdentityState, *Transport) {
	sdk := NewSDKClient(f.srv.URL)
	cache := NewSessionCache(&memStore{})
	identity := NewIdentityState(cache)
	transport := NewTransport(nil, sdk, cache, identity)
	httpClient := &http.Client{Transport: transport}
	return httpClient, cache, identity, transport
}

func TestTransportAttachesBearer(t *testing.T) {
	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, cache.SetTokens(ctx, "access-0", "refresh-0"))

	resp, err := httpClient.Get(f.srv.URL + "/v1/data")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	rotations, hits, denied := f.stats()
	require.Zero(t, rotations, "a valid token needs no refresh")
	require.Equal(t, 1, hits)
	require.Zero(t, denied)
}

func TestTransportRefreshesOn401(t *testing.T) {
	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	// Stale access token, valid refresh token.
	require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

	resp, err := httpClient.Get(f.srv.URL + "/v1/data")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	rotations, hits, denied := f.stats()
	require.Equal(t, 1, rotations)
	require.Equal(t, 2, hits, "one denied attempt plus one retry")
	require.Equal(t, 1, denied)

	// The rotated pair replaced the stale one.
	access, refresh, err := cache.Tokens(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)
	require.Equal(t, "refresh-1", refresh)
}

func TestTransportReplaysRequestBody(t *testing.T) {
	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

	resp, err := httpClient.Post(f.srv.URL+"/v1/data", "application/json",
		bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The retried request carried the same body.
	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "hello", out.Echo)
}

func TestTransportSurfacesOriginal401(t *testing.T) {
	t.Run("when the refresh token is rejected", func(t *testing.T) {
		f := newFakeAuthServer(t)
		f.refuseRefresh = true
		httpClient, cache, identity, transport := newPipelineTransport(f)
		ctx := context.Background()

		var forcedLogouts int
		transport.OnForcedLogout = func() { forcedLogouts++ }

		require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

		resp, err := httpClient.Get(f.srv.URL + "/v1/data")
		require.NoError(t, err, "a failed refresh is not a transport error")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// The refused pair is gone for good: session cleared, identity
		// anonymous, application notified exactly once.
		_, _, err = cache.Tokens(ctx)
		require.ErrorIs(t, err, ErrNoSession)
		require.False(t, identity.Current(ctx).Authenticated)
		require.Equal(t, 1, forcedLogouts)
	})

	t.Run("when the refresh endpoint is unreachable", func(t *testing.T) {
		f := newFakeAuthServer(t)
		ctx := context.Background()

		// Refresh calls go to a dead address while data requests still
		// reach the server. A transport error is not a refusal, so the
		// cached pair must survive for a later attempt.
		sdk := NewSDKClient("http://127.0.0.1:1")
		cache := NewSessionCache(&memStore{})
		transport := NewTransport(nil, sdk, cache, nil)
		transport.OnForcedLogout = func() { t.Error("unreachable refresh must not force a logout") }
		httpClient := &http.Client{Transport: transport}

		require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

		resp, err := httpClient.Get(f.srv.URL + "/v1/data")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		access, _, err := cache.Tokens(ctx)
		require.NoError(t, err)
		require.Equal(t, "stale-access", access)
	})

	t.Run("when no session exists", func(t *testing.T) {
		f := newFakeAuthServer(t)
		httpClient, _, _ := newPipeline(f)

		resp, err := httpClient.Get(f.srv.URL + "/v1/data")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		rotations, _, _ := f.stats()
		require.Zero(t, rotations)
	})
}

func TestTransportRetriesOnlyOnce(t *testing.T) {
	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

	// Invalidate each rotated token as soon as it is minted, so the retry
	// is denied as well. The transport must give up rather than loop.
	f.afterRotate = func(f *fakeAuthServer) {
		f.validAccess = "moved-again"
	}

	resp, err := httpClient.Get(f.srv.URL + "/v1/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rotations, hits, _ := f.stats()
	require.Equal(t, 1, rotations, "no second refresh attempt")
	require.Equal(t, 2, hits, "no second retry")
}

func TestTransportCoalescesConcurrentRefreshes(t *testing.T) {
	const workers = 5

	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, cache.SetTokens(ctx, "stale-access", "refresh-0"))

	// Hold the refresh exchange until every worker has been denied once,
	// so all of them end up waiting on the same in-flight refresh.
	allDenied := make(chan struct{})
	go func() {
		for {
			_, _, denied := f.stats()
			if denied >= workers {
				close(allDenied)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	f.beforeRefresh = func() {
		<-allDenied
		// Give the last denied worker time to join the in-flight group.
		time.Sleep(100 * time.Millisecond)
	}

	var wg sync.WaitGroup
	statuses := make([]int, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := httpClient.Get(f.srv.URL + "/v1/data")
			if err != nil {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	for _, status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}

	rotations, _, _ := f.stats()
	require.Equal(t, 1, rotations, "concurrent 401s share a single refresh exchange")
}

func TestTransportSkipsExemptPaths(t *testing.T) {
	f := newFakeAuthServer(t)
	httpClient, cache, _ := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, cache.SetTokens(ctx, "access-0", "refresh-0"))

	// The login handler asserts that no Authorization header arrives.
	resp, err := httpClient.Post(f.srv.URL+PathLogin, "application/json",
		bytes.NewReader([]byte(`{"identifier":"x","secret":"y"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransportUpdatesIdentityAfterRefresh(t *testing.T) {
	f := newFakeAuthServer(t)

	// Rotations hand out a real JWT so the identity can decode it.
	minted := mintAccessToken(t, "user-9", "ida@example.com", "Basic")
	f.mintAccess = func(int) string { return minted }

	httpClient, _, identity := newPipeline(f)
	ctx := context.Background()

	require.NoError(t, identity.SetTokens(ctx, "stale-access", "refresh-0"))
	require.False(t, identity.Current(ctx).Authenticated)

	resp, err := httpClient.Get(f.srv.URL + "/v1/data")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	p := identity.Current(ctx)
	require.True(t, p.Authenticated)
	require.Equal(t, "user-9", p.ID)
	require.Equal(t, "ida@example.com", p.Email)
}
