package router

import (
	"net/http"

	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/metrics"

	"github.com/rs/zerolog"
)

// Handlers - набор обработчиков, из которых собирается API.
type Handlers struct {
	Users     *handlers.UserHandler
	Vendors   *handlers.VendorHandler
	Contracts *handlers.ContractHandler
	Tenders   *handlers.TenderHandler
	Bids      *handlers.BidHandler
	Workflows *handlers.WorkflowHandler
}

// InitRoutes регистрирует маршруты API и оборачивает их в общие middleware.
// Все маршруты, кроме ping, metrics, register и login, требуют токен.
func InitRoutes(h Handlers, authenticator Authenticator, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	auth := requireAuth(authenticator, log)
	private := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, auth(handler))
	}

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/auth/register", h.Users.Register)
	mux.HandleFunc("POST /api/auth/login", h.Users.Login)
	private("GET /api/auth/profile", h.Users.Profile)
	private("PUT /api/auth/profile", h.Users.UpdateProfile)
	private("GET /api/users", h.Users.ListUsers)
	private("GET /api/users/{userId}", h.Users.GetUser)
	private("PATCH /api/users/{userId}", h.Users.UpdateUser)

	private("GET /api/vendors", h.Vendors.GetVendors)
	private("POST /api/vendors", h.Vendors.CreateVendor)
	private("GET /api/vendors/{vendorId}", h.Vendors.GetVendor)
	private("PUT /api/vendors/{vendorId}", h.Vendors.EditVendor)
	private("DELETE /api/vendors/{vendorId}", h.Vendors.DeleteVendor)
	private("GET /api/vendors/{vendorId}/performance", h.Vendors.GetPerformance)

	private("GET /api/contracts", h.Contracts.GetContracts)
	private("POST /api/contracts", h.Contracts.CreateContract)
	private("GET /api/contracts/stats", h.Contracts.GetStats)
	private("POST /api/contracts/expiring/notify", h.Contracts.NotifyExpiring)
	private("GET /api/contracts/{contractId}", h.Contracts.GetContract)
	private("PUT /api/contracts/{contractId}", h.Contracts.EditContract)
	private("DELETE /api/contracts/{contractId}", h.Contracts.DeleteContract)
	private("POST /api/contracts/{contractId}/submit", h.Contracts.SubmitContract)
	private("GET /api/contracts/{contractId}/history", h.Contracts.GetHistory)

	private("GET /api/tenders", h.Tenders.GetTenders)
	private("POST /api/tenders", h.Tenders.CreateTender)
	private("GET /api/tenders/{tenderId}", h.Tenders.GetTender)
	private("PUT /api/tenders/{tenderId}", h.Tenders.EditTender)
	private("DELETE /api/tenders/{tenderId}", h.Tenders.DeleteTender)
	private("POST /api/tenders/{tenderId}/publish", h.Tenders.PublishTender)
	private("POST /api/tenders/{tenderId}/bidding", h.Tenders.OpenBidding)
	private("POST /api/tenders/{tenderId}/close", h.Tenders.CloseTender)
	private("POST /api/tenders/{tenderId}/award", h.Tenders.AwardTender)
	private("POST /api/tenders/{tenderId}/cancel", h.Tenders.CancelTender)

	private("GET /api/bids", h.Bids.GetBids)
	private("POST /api/bids", h.Bids.CreateBid)
	private("GET /api/bids/{bidId}", h.Bids.GetBid)
	private("PUT /api/bids/{bidId}", h.Bids.EditBid)
	private("DELETE /api/bids/{bidId}", h.Bids.DeleteBid)
	private("POST /api/bids/{bidId}/submit", h.Bids.SubmitBid)
	private("POST /api/bids/{bidId}/review", h.Bids.ReviewBid)

	private("GET /api/workflows/pending", h.Workflows.GetMyPending)
	private("GET /api/workflows/{workflowId}", h.Workflows.GetWorkflow)
	private("GET /api/workflows/entity/{entityType}/{entityId}", h.Workflows.GetEntityWorkflows)
	private("POST /api/workflows/{workflowId}/cancel", h.Workflows.Cancel)
	private("POST /api/workflows/{workflowId}/stages/{stage}/decision", h.Workflows.Decide)
	private("POST /api/workflows/{workflowId}/stages/{stage}/reassign", h.Workflows.Reassign)

	return chain(mux, requestID, accessLog(log), recoverPanic(log))
}
