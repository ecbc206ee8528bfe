package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Published tasks are consumed outside this process; the round trip here is
// what an offline reader of the failure streams does with task_data.
func TestFailureTaskRoundTrip(t *testing.T) {
	published := &NodeFailureTask{
		URL:    "https://nospos.com/stock/valuation?cat=11",
		Path:   []string{"Consoles", "Retro"},
		Reason: "unreachable after retries",
	}

	data, err := published.TaskValue()
	require.NoError(t, err)

	decoded, err := UnmarshalTask[*NodeFailureTask](data)
	require.NoError(t, err)
	assert.Equal(t, published, decoded)
}

func TestBatchFailureTaskRoundTrip(t *testing.T) {
	published := &BatchFailureTask{
		BatchNumber: 3,
		CartID:      "18423",
		Barserials:  []string{"100001", "100002"},
		Error:       "fill payment amount: page: element not found",
	}

	data, err := published.TaskValue()
	require.NoError(t, err)

	decoded, err := UnmarshalTask[*BatchFailureTask](data)
	require.NoError(t, err)
	assert.Equal(t, published, decoded)
}

func TestTaskTypesNameTheirStreams(t *testing.T) {
	assert.Equal(t, "NodeFailureTask", (&NodeFailureTask{}).TaskType())
	assert.Equal(t, "BatchFailureTask", (&BatchFailureTask{}).TaskType())
	assert.Equal(t, "RefundFailureTask", (&RefundFailureTask{}).TaskType())
}
