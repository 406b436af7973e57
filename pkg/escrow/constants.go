package escrow

const (
	operationRegisterUser     = "register_user"
	operationRegisterBuyer    = "register_buyer"
	operationCreateProject    = "create_project"
	operationAddUnit          = "add_unit"
	operationAddUnitBatch     = "add_unit_batch"
	operationBookUnit         = "book_unit"
	operationRecordPayment    = "record_payment"
	operationMatchTransaction = "match_transaction"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	unitBatchCodeSeparator = "-"
	maxUnitBatchSize       = 500
)
