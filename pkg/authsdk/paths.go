package authsdk

// Service endpoint paths. The Transport uses these to decide which
// requests must never carry or trigger token handling.
const (
	PathLogin     = "/v1/auth/login"
	PathRefresh   = "/v1/auth/refresh"
	PathRegister  = "/v1/auth/register"
	PathSeedAdmin = "/v1/auth/admin"
)

// exemptPaths are the endpoints that authenticate by credential or
// refresh token rather than bearer token. Requests to these bypass the
// Transport's attach/refresh/retry pipeline entirely.
var exemptPaths = map[string]struct{}{
	PathLogin:     {},
	PathRefresh:   {},
	PathRegister:  {},
	PathSeedAdmin: {},
}

func isExemptPath(path string) bool {
	_, ok := exemptPaths[path]
	return ok
}
