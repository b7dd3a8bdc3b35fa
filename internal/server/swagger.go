//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title Eddy API
// @version 0.1
// @description Edit sessions over a page: apply modification batches, walk their history, preview the result.
// @contact.name Eddy Maintainers
// @contact.url https://github.com/raysh454/eddy
// @BasePath /
package server

import (
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/eddy/internal/server/docs"
)

var swaggerHandler = httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
