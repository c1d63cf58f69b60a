/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"github.com/shopspring/decimal"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jerry-enebeli/vanta"
)

// CreateLinkRequest is the POST /links body.
type CreateLinkRequest struct {
	Sender   string                 `json:"sender"`
	Symbol   string                 `json:"symbol"`
	Amount   decimal.Decimal        `json:"amount"`
	MetaData map[string]interface{} `json:"meta_data,omitempty"`
}

func (r *CreateLinkRequest) ValidateCreateLink() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Sender, validation.Required),
		validation.Field(&r.Symbol, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.By(positiveAmount(r.Amount))),
	)
}

func positiveAmount(amount decimal.Decimal) validation.RuleFunc {
	return func(value interface{}) error {
		if !amount.IsPositive() {
			return validation.NewError("validation_amount", "amount must be greater than zero")
		}
		return nil
	}
}

func (r *CreateLinkRequest) ToCreateLinkRequest() vanta.CreateLinkRequest {
	return vanta.CreateLinkRequest{
		Sender:   r.Sender,
		Symbol:   r.Symbol,
		Amount:   r.Amount,
		MetaData: r.MetaData,
	}
}

// ClaimRequest is the POST /claims body. The secret comes out of the share
// URL fragment on the client side; it is accepted in a request body, never a
// query parameter, so it stays out of access logs.
type ClaimRequest struct {
	Secret    string `json:"secret"`
	Recipient string `json:"recipient"`
	Symbol    string `json:"symbol"`
}

func (r *ClaimRequest) ValidateClaim() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret, validation.Required),
		validation.Field(&r.Recipient, validation.Required),
	)
}

func (r *ClaimRequest) ToClaimRequest() vanta.ClaimRequest {
	return vanta.ClaimRequest{
		Secret:    r.Secret,
		Recipient: r.Recipient,
		Symbol:    r.Symbol,
	}
}

// RefundRequest is the POST /links/:id/refund body.
type RefundRequest struct {
	Destination string `json:"destination"`
}

func (r *RefundRequest) ValidateRefund() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Destination, validation.Required),
	)
}
