package main

// General API documentation for swaggo. Run `swag init -g cmd/asrd/docs.go -o internal/apidocs` to regenerate.
//
// @title           asrd API
// @version         1.0
// @description     Speech recognition over a single GPU model slot with idle offload.
//
// @contact.name   asrd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
