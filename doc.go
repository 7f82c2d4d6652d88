// Package auth decides whether a caller is a valid, currently permitted
// user, from either a credential/password pair or a bearer token.
//
// Components:
//   - PasswordHasher hashes and verifies passwords (bcrypt or argon2id),
//     running the CPU bound work on a bounded HashPool.
//   - TokenCodec issues and verifies HMAC signed JWTs carrying sub, exp
//     and token_type. Access and refresh tokens are never interchangeable.
//   - ValidatorChain runs the configured user validators in order and
//     stops at the first rejection.
//   - UserStore looks users up by id, public id, username, email or
//     credential. Misses are ErrUserNotFound, failures a *StoreError.
//   - Registry and Resolver map configured references such as "bun" or
//     "bcrypt" to constructors; Assemble wires everything at startup.
//
// Auther composes these into Login, ResolveCurrentUser and
// TryResolveCurrentUser. Every rejection collapses into ErrUnauthorized
// while the reason is reported to the Logger and to an ActivitySink.
// Infrastructure failures surface as *UnavailableError so transports can
// tell "credentials rejected" apart from "system down".
package auth
