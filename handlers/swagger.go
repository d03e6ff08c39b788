package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>notewave api</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "notewave", "version": "v0.1.0" },
  "paths": {
    "/api/users/register": {
      "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "201": { "description": "account created, tokens returned" }, "409": { "description": "email already registered" } } }
    },
    "/api/users/login": {
      "post": { "summary": "Sign in with email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/api/users/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/users/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/notes": {
      "get": { "summary": "List notes visible to a collaborator", "responses": { "200": { "description": "notes, most recently updated first" } } },
      "post": { "summary": "Create a note", "responses": { "200": { "description": "note created" } } }
    },
    "/api/notes/{id}": {
      "get": { "summary": "Fetch a note", "responses": { "200": { "description": "note" }, "404": { "description": "unknown note" } } },
      "put": { "summary": "Update title and/or content, appending a version", "responses": { "200": { "description": "updated note" } } },
      "delete": { "summary": "Delete a note and its history", "responses": { "200": { "description": "deleted" } } }
    },
    "/api/notes/{id}/versions": {
      "get": { "summary": "List version history, newest first", "responses": { "200": { "description": "versions" } } }
    },
    "/api/notes/{id}/restore": {
      "post": { "summary": "Restore an earlier version as a new version", "responses": { "200": { "description": "restored note" }, "404": { "description": "unknown note or version" } } }
    },
    "/api/notes/{id}/invite": {
      "post": { "summary": "Invite a collaborator by email", "responses": { "200": { "description": "updated note" }, "400": { "description": "already a collaborator" } } }
    },
    "/ws": { "get": { "summary": "Relay websocket endpoint", "responses": { "101": { "description": "switching protocols" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
