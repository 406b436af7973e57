package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/escrowhq/escrow/pkg/escrow"
)

func (handler *apiHandler) handleAdminBuilders(ctx *gin.Context) {
	builders, err := handler.service.Builders(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	payloads := make([]gin.H, 0, len(builders))
	for _, builder := range builders {
		payloads = append(payloads, gin.H{
			"user_id":    builder.UserID,
			"name":       builder.Name,
			"email":      builder.Email,
			"created_at": builder.CreatedUnixUTC,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"builders": payloads})
}

func (handler *apiHandler) handleAdminProjects(ctx *gin.Context) {
	builderID := strings.TrimSpace(ctx.Query("builder_id"))
	name := strings.TrimSpace(ctx.Query("name"))

	var projects []escrow.Project
	var err error
	switch {
	case builderID != "":
		projects, err = handler.service.ProjectsByBuilder(ctx.Request.Context(), builderID)
	case name != "":
		projects, err = handler.service.ProjectsByName(ctx.Request.Context(), name)
	default:
		projects, err = handler.service.Projects(ctx.Request.Context())
	}
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": projectPayloads(projects)})
}

// handleAdminBookings lists every booking joined with its buyer name and unit
// code, optionally filtered by a query that matches either.
func (handler *apiHandler) handleAdminBookings(ctx *gin.Context) {
	bookings, err := handler.service.Bookings(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	buyers, err := handler.service.Buyers(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	units, err := handler.service.Units(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	buyerNames := make(map[string]string, len(buyers))
	for _, buyer := range buyers {
		buyerNames[buyer.BuyerID] = buyer.Name
	}
	unitCodes := make(map[string]string, len(units))
	for _, unit := range units {
		unitCodes[unit.UnitID] = unit.Code
	}

	query := strings.ToLower(strings.TrimSpace(ctx.Query("query")))
	payloads := make([]gin.H, 0, len(bookings))
	for _, booking := range bookings {
		buyerName := buyerNames[booking.BuyerID]
		unitCode := unitCodes[booking.UnitID]
		if query != "" &&
			!strings.Contains(strings.ToLower(buyerName), query) &&
			!strings.Contains(strings.ToLower(unitCode), query) {
			continue
		}
		payload := bookingPayload(booking)
		payload["buyer_name"] = buyerName
		payload["unit_code"] = unitCode
		payloads = append(payloads, payload)
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": payloads})
}

func (handler *apiHandler) handleAdminTransactions(ctx *gin.Context) {
	transactions, err := handler.service.Transactions(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	if ctx.Query("status") == "unmatched" {
		transactions = escrow.Unmatched(transactions)
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": transactionPayloads(transactions)})
}
