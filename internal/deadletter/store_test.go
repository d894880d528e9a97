package deadletter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogStoreNeverFails(t *testing.T) {
	store := LogStore{}
	err := store.Save(context.Background(), Entry{
		Subject:       "tool.invoke.recon.port-scan",
		CorrelationID: "corr-1",
		Reason:        "no route found",
		Data:          []byte(`{}`),
		ReceivedAt:    time.Now(),
	})
	assert.NoError(t, err)
}
