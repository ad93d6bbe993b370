/*
Package authsdk provides a client SDK for the Harbor authentication service.

# Overview

The package is organized around three main types:

  - SDKClient: Raw, unauthenticated calls against the service endpoints
    (login, refresh, register, health).
  - SessionCache: Persistence for the current token pair through a
    pluggable SecretStore (an encrypted file store ships with the package).
  - Transport: An http.RoundTripper that attaches the cached bearer token,
    detects 401 responses, silently refreshes the pair, and retries the
    request once.

Wire types in this package double as the server's request/response bodies,
so the service and the SDK can never drift apart.

# Typical Usage

	client := authsdk.NewSDKClient("https://auth.example.com")

	cache := authsdk.NewSessionCache(store)
	identity := authsdk.NewIdentityState(cache)

	httpClient := &http.Client{
		Transport: authsdk.NewTransport(nil, client, cache, identity),
	}

	// Log in and persist the pair. Every request made through httpClient
	// now carries the bearer token and survives access-token expiry.
	resp, err := client.Login(ctx, "alice", "password")
	if err == nil {
		_ = identity.SetTokens(ctx, resp.AccessToken, resp.RefreshToken)
	}

# Silent Refresh

When a request through the Transport comes back 401, the Transport
exchanges the stored refresh token for a new pair and retries the request
once with the new access token. Concurrent 401s share a single refresh
exchange. If the refresh itself fails, the caller sees the original 401
response, never a transport error. A refusal from the server additionally
ends the session: the cache is cleared, the identity goes anonymous, and
the Transport's OnForcedLogout hook runs once.

# Identity

IdentityState derives a Principal (id, username, email, role) from the
cached access token without verifying its signature; the server remains
the authority on token validity. Subscribe to be notified when the
principal changes:

	ch, cancel := identity.Subscribe()
	defer cancel()
	for p := range ch {
		fmt.Println("now signed in as", p.Username)
	}

# Thread Safety

SDKClient, SessionCache, IdentityState, and Transport are all safe for
concurrent use.
*/
package authsdk
