package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/rs/zerolog"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// SendErrorResponse отправляет ошибку в формате JSON.
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, models.ErrorResponse{StatusCode: statusCode, Message: message})
}

// SendJSON отправляет тело ответа в формате JSON.
func SendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// SendServiceError переводит ошибку сервиса в HTTP-ответ.
// Ошибки без ErrorResponse в цепочке считаются внутренними и не раскрываются клиенту.
func SendServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		log.Debug().Err(err).Str("kind", string(errorResponse.Kind)).Msg("request rejected")
		SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	log.Error().Err(err).Msg(fallback)
	SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// DecodeJSON читает тело запроса в dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return models.ValidationFailed("invalid request body: %v", err)
	}
	return nil
}

// ParseLimitOffset обрабатывает limit и offset.
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	limit, offset := defaultLimit, 0
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [1:%d]", maxLimit)
		}
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	}

	return limit, offset, nil
}

// ParsePage читает page/limit или limit/offset из строки запроса.
// Номер страницы начинается с 1 и имеет приоритет над offset.
func ParsePage(r *http.Request) (models.Page, error) {
	query := r.URL.Query()
	limit, offset, err := ParseLimitOffset(query.Get("limit"), query.Get("offset"))
	if err != nil {
		return models.Page{}, models.ValidationFailed("%s", err.Error())
	}
	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return models.Page{}, models.ValidationFailed("invalid page parameter, must be a positive integer")
		}
		offset = (page - 1) * limit
	}
	return models.Page{Limit: limit, Offset: offset}, nil
}

// Contains - проверка вхождения значения в список.
func Contains[T comparable](values []T, value T) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
