package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-compras/internal/domain/event"
)

func TestJobCostRecompute_EncodeDecode(t *testing.T) {
	in := event.JobCostRecomputeV1{JobID: "OT-15", OrderID: "o1", OrderCode: "OC-9", RequisitionID: "r1"}
	raw, version, err := event.EncodeJobCostRecompute(in)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	out, err := event.DecodeJobCostRecompute(version, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeJobCostRecompute_Rejects(t *testing.T) {
	_, err := event.DecodeJobCostRecompute(2, []byte(`{"job_id":"x"}`))
	assert.Error(t, err)

	_, err = event.DecodeJobCostRecompute(1, []byte(`{"order_id":"o1"}`))
	assert.Error(t, err)

	_, err = event.DecodeJobCostRecompute(1, []byte(`no-json`))
	assert.Error(t, err)
}
