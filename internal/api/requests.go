// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// maxRequestBody caps JSON request bodies at 1 MiB.
const maxRequestBody = 1 << 20

// validate is the shared validator instance. validator.Validate is safe for
// concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateRuleRequest is the POST /alert-rules body. Threshold is a pointer so
// an explicit 0 is distinguishable from an absent field.
type CreateRuleRequest struct {
	Name       string   `json:"name" validate:"required,min=1,max=200"`
	MetricType string   `json:"metric_type" validate:"required,min=1,max=100"`
	Condition  string   `json:"condition" validate:"required,oneof=below above change_percent"`
	Threshold  *float64 `json:"threshold" validate:"required"`
	Category   string   `json:"category" validate:"omitempty,max=100"`
	IsActive   *bool    `json:"is_active"`
}

// UpdateRuleRequest is the PATCH /alert-rules/{id} body. Every field is
// optional; absent fields leave the stored value untouched.
type UpdateRuleRequest struct {
	Name      *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Condition *string  `json:"condition" validate:"omitempty,oneof=below above change_percent"`
	Threshold *float64 `json:"threshold"`
	IsActive  *bool    `json:"is_active"`
}

// IngestEventRequest is the POST /events body.
type IngestEventRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=200"`
	Category  string `json:"category" validate:"omitempty,max=100"`
	Timestamp string `json:"timestamp" validate:"omitempty"`
}

// IngestSessionRequest is the POST /sessions body.
type IngestSessionRequest struct {
	Email     string `json:"email" validate:"required,email"`
	CreatedAt string `json:"created_at" validate:"omitempty"`
	UpdatedAt string `json:"updated_at" validate:"omitempty"`
	Completed bool   `json:"completed"`
	ExitStep  *int   `json:"exit_step" validate:"omitempty,min=0"`
}

// IngestPurchaseRequest is the POST /purchases body.
type IngestPurchaseRequest struct {
	Amount      *float64 `json:"amount" validate:"required,gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	Status      string   `json:"status" validate:"omitempty,oneof=completed pending refunded"`
	PurchasedAt string   `json:"purchased_at" validate:"omitempty"`
}

// fieldError is one entry of a VALIDATION_FAILED details list.
type fieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// decodeAndValidate parses a JSON body into dst and runs struct validation.
// Validation failures are reported as a 400 with per-field details; the
// return value says whether the handler should continue.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(rw.w, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			rw.BadRequest("request body is required")
			return false
		}
		rw.BadRequest(fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]fieldError, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fieldError{
					Field:  fe.Field(),
					Reason: validationReason(fe),
				})
			}
			rw.ValidationError("request validation failed", details)
			return false
		}
		rw.BadRequest("request validation failed")
		return false
	}

	return true
}

// validationReason renders one validator tag failure as a short phrase.
func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// queryInt parses an optional integer query parameter. A missing parameter
// returns (def, true); a malformed one reports a 400 and returns ok=false.
func queryInt(rw *ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		rw.BadRequest(fmt.Sprintf("query parameter %q must be an integer", name))
		return 0, false
	}
	return v, true
}
