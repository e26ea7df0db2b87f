package handlers

import (
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"

	"github.com/devops-ftn-2024/accommodations/authorization"
)

// CORS admits browser calls from the configured origins only.
func CORS(origins []string) func(http.Handler) http.Handler {
	return gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(origins),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", authorization.UserHeader}),
	)
}
