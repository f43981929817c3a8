package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type TransactionStatus string

const (
	TRANSACTION_WAITING_FOR_PAYMENT      TransactionStatus = "WAITING_FOR_PAYMENT"
	TRANSACTION_WAITING_FOR_CONFIRMATION TransactionStatus = "WAITING_FOR_CONFIRMATION"
	TRANSACTION_DONE                     TransactionStatus = "DONE"
	TRANSACTION_REJECTED                 TransactionStatus = "REJECTED"
	TRANSACTION_EXPIRED                  TransactionStatus = "EXPIRED"
)

// Terminal reports whether the status is a sink. Terminal transactions never
// change status again.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TRANSACTION_DONE, TRANSACTION_REJECTED, TRANSACTION_EXPIRED:
		return true
	}
	return false
}

type Role string

const (
	ROLE_CUSTOMER  Role = "CUSTOMER"
	ROLE_ORGANIZER Role = "ORGANIZER"
)

type AppEnv string

const (
	Local      AppEnv = "local"
	Test       AppEnv = "test"
	Production AppEnv = "production"
)

type ErrorKind string

const (
	ERR_NOT_FOUND  ErrorKind = "NOT_FOUND"
	ERR_VALIDATION ErrorKind = "VALIDATION"
	ERR_FORBIDDEN  ErrorKind = "FORBIDDEN"
	ERR_CONFLICT   ErrorKind = "CONFLICT"
	ERR_INTERNAL   ErrorKind = "INTERNAL"
)

// ApiError carries a stable kind alongside the human-readable reason so the
// transport layer can map failures to status classes without string matching.
type ApiError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(kind ErrorKind, message string) *ApiError {
	return &ApiError{Kind: kind, Message: message}
}

func (e *ApiError) Status() int {
	switch e.Kind {
	case ERR_NOT_FOUND:
		return http.StatusNotFound
	case ERR_VALIDATION:
		return http.StatusBadRequest
	case ERR_FORBIDDEN:
		return http.StatusForbidden
	case ERR_CONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AsApiError wraps arbitrary errors, defaulting unknown failures to INTERNAL.
func AsApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewApiError(ERR_INTERNAL, err.Error())
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type UUIDRequestParams struct {
	UUID string `uri:"uuid" binding:"required,uuid"`
}

type PaginationQuery struct {
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
}

func (p *PaginationQuery) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func NewPaginationMeta(p *PaginationQuery, total int64) PaginationMeta {
	totalPages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		totalPages++
	}
	return PaginationMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}

type RegisterRequestBody struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Role         Role   `json:"role" binding:"omitempty,oneof=CUSTOMER ORGANIZER"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequestBody uses explicit nilable fields so absent and zero values
// stay distinguishable.
type UpdateUserRequestBody struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty" binding:"omitempty,min=8"`
}

type CreateEventRequestBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Location    string `json:"location" binding:"required"`
	StartsAt    string `json:"starts_at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt      string `json:"ends_at" binding:"required,bookabledate,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
}

type EditEventRequestBody struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    *string `json:"starts_at,omitempty" binding:"omitempty,bookabledate"`
	EndsAt      *string `json:"ends_at,omitempty" binding:"omitempty,bookabledate"`
}

type CreateTicketRequestBody struct {
	Name    string `json:"name" binding:"required"`
	Price   int64  `json:"price" binding:"min=0"`
	Stock   int    `json:"stock" binding:"min=0"`
	EventID uint   `json:"event" binding:"required"`
}

type CreateVoucherRequestBody struct {
	Code      string `json:"code" binding:"required"`
	Value     int64  `json:"value" binding:"required,min=1"`
	EventID   uint   `json:"event" binding:"required"`
	ExpiresAt string `json:"expires_at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type TransactionItem struct {
	TicketID uint `json:"ticket_id" binding:"required"`
	Qty      int  `json:"qty" binding:"required,min=1"`
}

type CreateTransactionRequestBody struct {
	Items     []TransactionItem `json:"payload" binding:"required,min=1,dive"`
	VoucherID *uint             `json:"voucher_id,omitempty"`
	UsePoints int64             `json:"use_points,omitempty" binding:"omitempty,min=1"`
	Email     string            `json:"email" binding:"required,email"`
}

type CreateReviewRequestBody struct {
	EventID uint   `json:"event" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}
