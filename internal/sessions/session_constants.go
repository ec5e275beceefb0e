package sessions

// Note the browser shell depends on some of these values, changing them will cause breaking changes
const (
	SessionCtxKey        = "arena_session_id"
	SessionExpiredHeader = "X-Session-Expired"
)
