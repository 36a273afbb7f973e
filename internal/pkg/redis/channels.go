package redis

import "fmt"

const (
	// ChannelJobLogsPrefix is the prefix for job-specific log channels.
	ChannelJobLogsPrefix = "job_logs:"

	// ChannelJobStatePrefix is the prefix for job-specific state change channels.
	ChannelJobStatePrefix = "job_state:"

	// KeyJobStatusPrefix is the prefix for the key holding the last known job status.
	KeyJobStatusPrefix = "job_status:"
)

// GetJobLogsChannel returns the job-specific channel name for streaming logs.
func GetJobLogsChannel(jobID string) string {
	return fmt.Sprintf("%s%s", ChannelJobLogsPrefix, jobID)
}

// GetJobStateChannel returns the job-specific channel name for state changes.
func GetJobStateChannel(jobID string) string {
	return fmt.Sprintf("%s%s", ChannelJobStatePrefix, jobID)
}

// GetJobStatusKey returns the key holding the job status.
func GetJobStatusKey(jobID string) string {
	return fmt.Sprintf("%s%s", KeyJobStatusPrefix, jobID)
}
