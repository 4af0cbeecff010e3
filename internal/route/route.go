// Package route classifies request paths for the session gate.
package route

import (
	"path"
	"strings"
)

type Class string

const (
	Public    Class = "public"
	Protected Class = "protected"
	AuthOnly  Class = "authOnly"
	// Default paths match no table and are allowed through.
	Default Class = "default"
)

const (
	LoginPath     = "/login"
	SignupPath    = "/signup"
	DashboardPath = "/dashboard"
)

// publicPaths match exactly.
var publicPaths = []string{"/", "/about", "/contact", "/terms", "/privacy"}

var protectedPaths = []string{
	"/dashboard",
	"/profile",
	"/resume",
	"/introduce",
	"/spec-management",
	"/job-calendar",
	"/community",
	"/statistics",
	"/settings",
}

var authOnlyPaths = []string{LoginPath, SignupPath}

var staticPrefixes = []string{"/static/", "/assets/", "/_next/"}

// Classify maps a request path to its class. Public paths are checked first by
// exact match; protected and auth-only prefixes never overlap.
func Classify(p string) Class {
	for _, candidate := range publicPaths {
		if p == candidate {
			return Public
		}
	}
	if hasAnyPrefix(p, protectedPaths) {
		return Protected
	}
	if hasAnyPrefix(p, authOnlyPaths) {
		return AuthOnly
	}
	return Default
}

// IsStatic reports whether p names an asset the gate never inspects.
func IsStatic(p string) bool {
	if p == "/favicon.ico" || p == "/robots.txt" {
		return true
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	// a dotted name is a file only outside the gated tables
	if IsAPI(p) || Classify(p) != Default {
		return false
	}
	return path.Ext(path.Base(p)) != ""
}

// IsAPI reports whether p is a backend API call.
func IsAPI(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

func hasAnyPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// ProtectedPrefixes returns a copy of the protected table.
func ProtectedPrefixes() []string {
	return append([]string(nil), protectedPaths...)
}
