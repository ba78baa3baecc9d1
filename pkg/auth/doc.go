// Package auth implements QuestLog's session core: JWT issuance and
// verification, token revocation on logout, the periodic revocation sweep and
// the Authenticator that ties them to the credential store.
//
// # Tokens
//
// Access tokens are HS256 JWTs carrying sub, iat, exp and a random jti:
//
//	codec, err := auth.NewCodec([]byte(secret), 24*time.Hour)
//	token, err := codec.Issue("alice", nil)
//
// An empty secret generates a random key at startup. Tokens signed with it
// stop validating when the process restarts.
//
// # Revocation
//
// Logout adds the exact token string to a RevocationRegistry. MemoryRegistry
// serves a single instance; RedisRegistry shares one set between instances.
// A Sweeper removes entries whose expiry has passed:
//
//	registry := auth.NewMemoryRegistry(codec)
//	sweeper := auth.NewSweeper(registry, time.Minute, codec.Now, logger, metrics)
//	sweeper.Start(ctx)
//
// # Authentication
//
// Validate and Resolve fail closed. Callers never learn whether a token was
// malformed, expired, revoked or issued to someone else; only Login reports a
// distinct ErrInvalidCredentials.
//
//	authn := auth.NewAuthenticator(store, codec, registry, logger, metrics)
//	result, err := authn.Login(ctx, "alice", "hunter22")
//	identity, err := authn.Resolve(ctx, result.Token)
package auth
