// Package authn handles who a caller is: password hashing, signed tokens,
// token revocation and the account lifecycle built on them.
//
// # Tokens
//
// Every token is an HS256 JWT issued by "saasgate" with a random jti. The
// audience separates the three kinds of token:
//
//	saasgate:auth    access tokens presented as "Authorization: Bearer"
//	saasgate:verify  email verification, bound to the address
//	saasgate:reset   password reset, bound to the current password hash
//
// # Revocation
//
// Logging out records the jti in a Revoker until the token would have
// expired anyway. RedisRevoker is used when REDIS_URL is set, NopRevoker
// otherwise.
//
// # Errors
//
// Manager reports client mistakes as Error values whose text is the code
// returned to the client, e.g. LOGIN_BAD_CREDENTIALS.
package authn
