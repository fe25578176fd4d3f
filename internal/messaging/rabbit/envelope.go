package rabbit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// rpcError — сериализуемая ошибка в ответе RPC. Message всегда безопасен
// для внешнего потребителя: внутренние причины остаются в логах.
type rpcError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *rpcError       `json:"error,omitempty"`
}

// newSuccessEnvelope оборачивает полезную нагрузку в `{"data":...}`.
func newSuccessEnvelope(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal reply payload: %w", err)
	}
	return json.Marshal(envelope{Data: data})
}

// newErrorEnvelope оборачивает доменную ошибку в `{"error":{...}}`.
// Marshal envelope из примитивов не может упасть, поэтому ошибки нет.
func newErrorEnvelope(err error) []byte {
	body, _ := json.Marshal(envelope{Error: &rpcError{
		Status:  statusFromError(err),
		Message: messageFromError(err),
	}})
	return body
}

// statusFromError отображает таксономию доменных ошибок в статусы ответа.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, errMalformedRequest),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, domain.ErrProductsInvalid),
		errors.Is(err, domain.ErrStatusUnknown),
		errors.Is(err, domain.ErrOrderCreationFailed):
		return 400
	case errors.Is(err, domain.ErrOrderNotFound):
		return 404
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderVersionConflict):
		return 409
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return 503
	default:
		return 500
	}
}

func messageFromError(err error) string {
	if statusFromError(err) == 500 {
		// Неожиданные внутренности наружу не уходят.
		return "internal error"
	}
	return err.Error()
}
