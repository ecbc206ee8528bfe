package task

// NodeFailureTask records a crawl subtree that was abandoned, usually after
// retry exhaustion. The run continues with the node's siblings; the task is
// published so the gap stays auditable.
type NodeFailureTask struct {
	URL    string   `json:"url"`    // Node URL the crawler gave up on
	Path   []string `json:"path"`   // Category path down to the node
	Reason string   `json:"reason"` // Why the subtree was abandoned
}

func (t *NodeFailureTask) TaskType() string {
	return "NodeFailureTask"
}

func (t *NodeFailureTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

// BatchFailureTask records a sales batch the checkout driver skipped.
type BatchFailureTask struct {
	BatchNumber int      `json:"batch_number"` // 1-based position in the run
	CartID      string   `json:"cart_id,omitempty"`
	Barserials  []string `json:"barserials"` // Distinct keys in the batch
	Error       string   `json:"error"`      // Error message from the failure
}

func (t *BatchFailureTask) TaskType() string {
	return "BatchFailureTask"
}

func (t *BatchFailureTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

// RefundFailureTask records a refund card that could not be filled.
type RefundFailureTask struct {
	ReceiptID int    `json:"receipt_id"`
	Card      int    `json:"card"` // Zero-based card index on the refund page
	Error     string `json:"error"`
}

func (t *RefundFailureTask) TaskType() string {
	return "RefundFailureTask"
}

func (t *RefundFailureTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
