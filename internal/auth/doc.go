// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package auth provides local account authentication for NextStream.

Accounts sign in with a username or email and a bcrypt-hashed password.
A successful register or login returns an HS256 JWT that the API stores in
the httpOnly "token" cookie. Visitors without an account may request a
guest token, stored in the "guestToken" cookie, which carries the "guest"
role and no user id.

# Request Authentication

Middleware.Authenticate looks for a credential in this order:

 1. the "token" cookie
 2. the "guestToken" cookie
 3. an "Authorization: Bearer <jwt>" header

The first one present is validated. A missing or invalid credential is
answered with 401. The resolved Subject is stored in the request context:

	subject, ok := auth.SubjectFromContext(r.Context())

Middleware.RequireSelf compares the {userId} route parameter with the
authenticated user and answers 403 when they differ. Guests never pass it.
Role based route decisions live in the authz package.

# Tokens

Claims carry the user id, username and role. User tokens expire after
security.session_timeout, guest tokens after security.guest_timeout.
Tokens are stateless; logout clears the cookies.
*/
package auth
