package handlers

import (
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCheckout wraps checkout.CheckoutResult in the standard envelope.
type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkout.CheckoutResult  `json:"data"`
}

type RespOnboarding struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    checkout.OnboardingResult `json:"data"`
}

type RespSubscriptionHistory struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    SubscriptionHistoryResponse `json:"data"`
}

type RespTenant struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Tenant            `json:"data"`
}

// RespSalesStatistic wraps SalesStatisticResponse in the standard envelope.
type RespSalesStatistic struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    statistics.SalesStatisticResponse `json:"data"`
}

type RespListPayments struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    statistics.ScanPaymentsResponse `json:"data"`
}
