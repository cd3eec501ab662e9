// Package docs provides generated OpenAPI documentation.
//
// Binder API
//
//	@title			Binder API
//	@version		1.0
//	@description	Manifest-driven document packet assembly API for managing packets, jobs, and OCR extraction.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/binder
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/binder/serve.go -o ./swagger --parseDependency --parseInternal
