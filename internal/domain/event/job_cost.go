// Package event define los payloads tipados y versionados del outbox.
// Cada (Type, Version) tiene su struct; nadie decodifica JSON libre.
package event

import (
	"encoding/json"
	"fmt"
)

// TypeJobCostRecompute solicitud de recálculo de costos de la orden de trabajo vinculada.
const TypeJobCostRecompute = "job_cost.recompute"

// JobCostRecomputeV1 payload versión 1.
type JobCostRecomputeV1 struct {
	JobID         string `json:"job_id"`
	OrderID       string `json:"order_id"`
	OrderCode     string `json:"order_code"`
	RequisitionID string `json:"requisition_id"`
}

// Version de JobCostRecomputeV1.
func (JobCostRecomputeV1) Version() int { return 1 }

// EncodeJobCostRecompute serializa el payload vigente.
func EncodeJobCostRecompute(p JobCostRecomputeV1) (payload []byte, version int, err error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", TypeJobCostRecompute, err)
	}
	return b, p.Version(), nil
}

// DecodeJobCostRecompute interpreta el payload según su versión.
func DecodeJobCostRecompute(version int, payload []byte) (JobCostRecomputeV1, error) {
	switch version {
	case 1:
		var p JobCostRecomputeV1
		if err := json.Unmarshal(payload, &p); err != nil {
			return JobCostRecomputeV1{}, fmt.Errorf("decode %s v1: %w", TypeJobCostRecompute, err)
		}
		if p.JobID == "" {
			return JobCostRecomputeV1{}, fmt.Errorf("decode %s v1: job_id vacío", TypeJobCostRecompute)
		}
		return p, nil
	default:
		return JobCostRecomputeV1{}, fmt.Errorf("%s: versión %d no soportada", TypeJobCostRecompute, version)
	}
}
