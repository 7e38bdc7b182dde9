// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package authz provides role based route authorization using Casbin.
//
//	Request -> auth.Authenticate -> authz.AuthorizeRequest -> Handler
//
// # Model
//
// Requests are (role, path, method) triples. Paths are matched with
// keyMatch2 and methods with regexMatch:
//
//	[matchers]
//	m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
//
// # Default Policy
//
// The embedded policy.csv grants:
//
//	p, guest, /api/tmdb/*, ^(GET|HEAD)$
//	p, guest, /api/recommendations/popular, ^(GET|HEAD)$
//	p, user, /api/*, ^(GET|HEAD|POST|PUT|PATCH|DELETE)$
//	p, user, /ws, ^GET$
//	g, user, guest
//
// A denied request is answered with 403. Per-user ownership ({userId} route
// parameters) is checked by auth.Middleware.RequireSelf, not by the policy.
//
// # Configuration
//
// security.casbin_model_path and security.casbin_policy_path replace the
// embedded files. A policy file is reloaded every ReloadInterval; cached
// decisions live for CacheTTL.
package authz
