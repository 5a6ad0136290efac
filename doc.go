// Package identity provides account registration, email verification, and
// session primitives backed by Bun repositories.
//
// User lifecycle:
//   - Users, email records, and devices carry a Status field persisted via
//     Bun. Statuses cover created, active, and disabled; records move between
//     states instead of being deleted, so audit history survives.
//   - Registering with a real advertising identifier provisionally activates
//     the account before email verification completes. The all-zero
//     identifier is a reserved "absent" sentinel and is silently dropped.
//
// Verification flows:
//   - Verifier coordinates one-time codes: it stores only a bcrypt hash,
//     keeps at most one outstanding entry per address (issuing supersedes),
//     enforces a resend cooldown, and hands plaintext to the Notifier in a
//     detached task. Email verification and password reset are two
//     instantiations differing in TTL, alphabet, and terminal action.
//
// Sessions:
//   - TokenService signs HS256 JWTs carrying the user id as subject;
//     Authenticator exchanges credentials for tokens and tokens for live
//     user records. Unverified and disabled accounts are rejected with
//     errors distinct from bad credentials.
package identity
