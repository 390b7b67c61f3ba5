package api

import "github.com/tasteapp/taste-index/internal/service"

// Services groups all business logic services used by the API server.
type Services struct {
	Query     *service.QueryService
	Profile   *service.ProfileService
	Search    *service.SearchService
	Facts     *service.FactService
	Reconcile *service.ReconcileService
}
