package recon

const (
	TopicScanApplied      = "recon.scan.applied"
	TopicDeductionApplied = "recon.deduction.applied"
)

// Partition key = job name, so all deductions for one job stay ordered.
func PartitionKey(jobName string) []byte { return []byte(jobName) }
