// Package httpsession adapts an aging store to net/http: it resolves a
// session cookie to a value in the request context, issues and revokes
// cookie-bound sessions, and loads the store's configuration surface from a
// yaml file.
package httpsession
