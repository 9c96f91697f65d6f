// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions provides the pluggable authentication seam of the
// taskboard service.
//
// The open source build ships two providers: JWTAuthProvider for shared
// secret HS256 tokens and NopAuthProvider for local single-user runs.
// Deployments fronted by a different identity provider plug in their own
// AuthProvider through ServiceOptions.
//
// Example:
//
//	provider, err := extensions.NewJWTAuthProvider(extensions.JWTConfig{Secret: secret})
//	if err != nil {
//	    return err
//	}
//	opts := extensions.DefaultOptions().WithAuth(provider)
//	svc, err := taskboard.New(cfg, opts)
package extensions

// ServiceOptions holds the pluggable components of the service.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on /v1 routes.
	// Default: NopAuthProvider.
	AuthProvider AuthProvider
}

// DefaultOptions returns options with the no-op provider.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
	}
}

// WithAuth returns a copy of opts using provider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}
