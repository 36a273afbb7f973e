package redis_test

import (
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "github.com/hitesh22rana/logterminal/internal/pkg/redis"
)

type jobStatus struct {
	Status string `json:"status"`
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "job_logs:job-123", redispkg.GetJobLogsChannel("job-123"))
	assert.Equal(t, "job_state:job-123", redispkg.GetJobStateChannel("job-123"))
	assert.Equal(t, "job_status:job-123", redispkg.GetJobStatusKey("job-123"))
}

func TestGet(t *testing.T) {
	tests := []struct {
		name     string
		mock     func(mock redismock.ClientMock)
		want     jobStatus
		notFound bool
		isErr    bool
	}{
		{
			name: "success",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("job_status:job-123").SetVal(`{"status":"RUNNING"}`)
			},
			want: jobStatus{Status: "RUNNING"},
		},
		{
			name: "error: key not found",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("job_status:job-123").RedisNil()
			},
			notFound: true,
			isErr:    true,
		},
		{
			name: "error: connection failure",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("job_status:job-123").SetErr(errors.New("connection refused"))
			},
			isErr: true,
		},
		{
			name: "error: malformed value",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("job_status:job-123").SetVal(`{"status":`)
			},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			store := redispkg.NewWithClient(db)
			defer store.Close()

			tt.mock(mock)

			var got jobStatus
			err := store.Get(t.Context(), "job_status:job-123", &got)
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, tt.notFound, errors.Is(err, redispkg.ErrKeyNotFound))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
