package main

// General API documentation for swaggo. Run `swag init -g cmd/ollamadash/docs.go`
// and build with -tags=swagger to serve it.
//
// @title           ollamadash API
// @version         1.0
// @description     HTTP API for managing the models of a local Ollama daemon.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
