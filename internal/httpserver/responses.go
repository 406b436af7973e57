package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escrowhq/escrow/pkg/escrow"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondDomainError maps domain sentinels onto HTTP statuses with stable
// error codes. Unrecognized failures stay opaque to the client.
func respondDomainError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	ctx.JSON(status, errorResponse(code, message))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, escrow.ErrUnitAlreadyBooked):
		return http.StatusConflict, "unit_already_booked"
	case errors.Is(err, escrow.ErrBookingAlreadyMatched):
		return http.StatusConflict, "booking_already_matched"
	case errors.Is(err, escrow.ErrTransactionAlreadyMatched):
		return http.StatusConflict, "transaction_already_matched"
	case errors.Is(err, escrow.ErrDuplicateUnitCode):
		return http.StatusConflict, "duplicate_unit_code"
	case errors.Is(err, escrow.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email"
	case errors.Is(err, escrow.ErrProjectNotFound):
		return http.StatusNotFound, "project_not_found"
	case errors.Is(err, escrow.ErrUnitNotFound):
		return http.StatusNotFound, "unit_not_found"
	case errors.Is(err, escrow.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found"
	case errors.Is(err, escrow.ErrTransactionNotFound):
		return http.StatusNotFound, "transaction_not_found"
	case errors.Is(err, escrow.ErrUserNotFound), errors.Is(err, escrow.ErrBuyerNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, escrow.ErrAmountBelowPrice):
		return http.StatusBadRequest, "amount_below_price"
	case errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidPaymentMethod),
		errors.Is(err, escrow.ErrInvalidRole),
		errors.Is(err, escrow.ErrInvalidEmail),
		errors.Is(err, escrow.ErrInvalidUnitCode),
		errors.Is(err, escrow.ErrInvalidMetadataJSON),
		errors.Is(err, escrow.ErrInvalidUserID),
		errors.Is(err, escrow.ErrInvalidBuyerID),
		errors.Is(err, escrow.ErrInvalidProjectID),
		errors.Is(err, escrow.ErrInvalidUnitID),
		errors.Is(err, escrow.ErrInvalidBookingID),
		errors.Is(err, escrow.ErrInvalidTransactionID),
		errors.Is(err, escrow.ErrInvalidUserInput),
		errors.Is(err, escrow.ErrInvalidBuyerInput),
		errors.Is(err, escrow.ErrInvalidProjectInput),
		errors.Is(err, escrow.ErrInvalidBookingInput),
		errors.Is(err, escrow.ErrInvalidTransactionInput):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func projectPayload(project escrow.Project) gin.H {
	return gin.H{
		"project_id":    project.ProjectID,
		"builder_id":    project.BuilderID,
		"name":          project.Name,
		"location":      project.Location,
		"planned_units": project.PlannedUnits,
		"created_at":    project.CreatedUnixUTC,
	}
}

func projectPayloads(projects []escrow.Project) []gin.H {
	payloads := make([]gin.H, 0, len(projects))
	for _, project := range projects {
		payloads = append(payloads, projectPayload(project))
	}
	return payloads
}

func unitPayload(unit escrow.Unit, status escrow.UnitStatus) gin.H {
	return gin.H{
		"unit_id":    unit.UnitID,
		"project_id": unit.ProjectID,
		"code":       unit.Code,
		"floor":      unit.Floor,
		"area":       unit.Area.String(),
		"price":      unit.Price.String(),
		"status":     status.String(),
		"created_at": unit.CreatedUnixUTC,
	}
}

func bookingPayload(booking escrow.Booking) gin.H {
	return gin.H{
		"booking_id": booking.BookingID,
		"unit_id":    booking.UnitID,
		"buyer_id":   booking.BuyerID,
		"amount":     booking.Amount.String(),
		"date":       booking.Date,
		"created_at": booking.CreatedUnixUTC,
	}
}

func bookingPayloads(bookings []escrow.Booking) []gin.H {
	payloads := make([]gin.H, 0, len(bookings))
	for _, booking := range bookings {
		payloads = append(payloads, bookingPayload(booking))
	}
	return payloads
}

func transactionPayload(transaction escrow.Transaction) gin.H {
	payload := gin.H{
		"transaction_id": transaction.TransactionID,
		"unit_id":        transaction.UnitID,
		"buyer_id":       transaction.BuyerID,
		"amount":         transaction.Amount.String(),
		"date":           transaction.Date,
		"method":         transaction.Method.String(),
		"matched":        transaction.Matched(),
		"metadata":       json.RawMessage(transaction.MetadataJSON),
		"created_at":     transaction.CreatedUnixUTC,
	}
	if transaction.Matched() {
		payload["booking_id"] = *transaction.BookingID
	}
	return payload
}

func transactionPayloads(transactions []escrow.Transaction) []gin.H {
	payloads := make([]gin.H, 0, len(transactions))
	for _, transaction := range transactions {
		payloads = append(payloads, transactionPayload(transaction))
	}
	return payloads
}

func dashboardPayload(summary escrow.DashboardSummary) gin.H {
	return gin.H{
		"total_units":            summary.TotalUnits,
		"units_booked":           summary.UnitsBooked,
		"total_booking_amount":   summary.TotalBookingAmount.String(),
		"unmatched_transactions": summary.UnmatchedTransactions,
	}
}
