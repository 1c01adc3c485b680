package session

// Storage keys shared with every Elara client surface. Collaborators read
// these directly to decide navigation, so the names are part of the
// client-side contract and must not change.
const (
	KeyAccessToken  = "elara_access_token"
	KeyRefreshToken = "elara_refresh_token"
	KeyUser         = "elara_user"
)

// Store is the persisted key-value state backing a Session. Implementations
// must be safe for concurrent use. A Store holds opaque strings; all
// serialization is handled by the Manager.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}
