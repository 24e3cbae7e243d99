// Package docs provides OpenAPI documentation for the edap API
//
//	@title			edap API
//	@version		2.0
//	@description	Mirror of the school grading portal with change notifications.
//	@description	User routes are addressed by the token returned from /api/login.
//	@description	Admin routes require HTTP basic authentication.
//
//	@license.name	MIT
//
//	@securityDefinitions.basic	BasicAuth
//
//	@tag.name	user
//	@tag.description	Login and per-token data
//
//	@tag.name	admin
//	@tag.description	Operator endpoints
//
//	@tag.name	system
//	@tag.description	System health and version information
package main
