package models

import "time"

// WorkflowMetrics summarises authorization workflow activity since start.
type WorkflowMetrics struct {
	Submitted                uint64    `json:"submitted"`
	Approved                 uint64    `json:"approved"`
	Denied                   uint64    `json:"denied"`
	Processed                uint64    `json:"processed"`
	DeliveryFailures         uint64    `json:"deliveryFailures"`
	GateFailures             uint64    `json:"gateFailures"`
	Bypasses                 uint64    `json:"bypasses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
