package service

import (
	"fmt"
	"net/http"

	apperrors "github.com/utafrali/rocketshoes/pkg/errors"
)

// User-facing notices. These are the only texts a shopper ever sees for a
// failed cart operation.
const (
	MsgOutOfStock   = "Quantidade solicitada fora de estoque"
	MsgAddFailed    = "Erro na adição do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
	MsgUpdateFailed = "Erro na alteração de quantidade do produto"
)

// ErrorKind classifies why a cart operation failed.
type ErrorKind string

const (
	KindOutOfStock          ErrorKind = "out_of_stock"
	KindNotFound            ErrorKind = "not_found"
	KindRemoteLookupFailure ErrorKind = "remote_lookup_failure"
	KindStorageFailure      ErrorKind = "storage_failure"
)

// Operation names a CartStore mutation in logs, metrics and events.
type Operation string

const (
	OpAddProduct          Operation = "add_product"
	OpRemoveProduct       Operation = "remove_product"
	OpUpdateProductAmount Operation = "update_product_amount"
)

// CartError is returned by every failed CartStore mutation. Message is the
// notice shown to the shopper; Err carries the internal cause.
type CartError struct {
	Kind      ErrorKind
	Op        Operation
	ProductID int64
	Message   string
	Err       error
}

func (e *CartError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s product %d: %s", e.Op, e.ProductID, e.Kind)
	}
	return fmt.Sprintf("%s product %d: %s: %v", e.Op, e.ProductID, e.Kind, e.Err)
}

// Unwrap exposes both the AppError for the kind, so HTTP status mapping
// works through errors.As, and the internal cause.
func (e *CartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.AppError()}
	}
	return []error{e.AppError(), e.Err}
}

// AppError maps the kind onto the shared application error type.
func (e *CartError) AppError() *apperrors.AppError {
	switch e.Kind {
	case KindOutOfStock:
		return &apperrors.AppError{Code: "OUT_OF_STOCK", Message: e.Message, Status: http.StatusConflict, Err: apperrors.ErrConflict}
	case KindNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: e.Message, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	case KindRemoteLookupFailure:
		return &apperrors.AppError{Code: "CATALOG_UNAVAILABLE", Message: e.Message, Status: http.StatusBadGateway, Err: apperrors.ErrBadGateway}
	default:
		return &apperrors.AppError{Code: "STORAGE_FAILURE", Message: e.Message, Status: http.StatusInternalServerError, Err: apperrors.ErrInternal}
	}
}
