package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20

// Response — общий конверт ответов API.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToHTTPResponse переводит вид ошибки в HTTP-статус и безопасное сообщение.
func ToHTTPResponse(err error) (int, string) {
	switch e.KindOf(err) {
	case e.KindValidation, e.KindInsufficientStock:
		return http.StatusBadRequest, e.Message(err)
	case e.KindNotFound:
		return http.StatusNotFound, e.Message(err)
	case e.KindConflict:
		return http.StatusConflict, e.Message(err)
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteErrorStatus(w, code, msg)
}

func WriteErrorStatus(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Response{Success: false, Error: msg})
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON строго разбирает тело запроса: неизвестные поля и лишние данные после объекта отклоняются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return e.ErrInvalidRequestBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return e.ErrInvalidRequestBody
	}

	return nil
}

// parseID читает положительный целочисленный параметр пути.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, e.ErrInvalidID
	}

	return id, nil
}
