package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(MailSendTotal.WithLabelValues("failed", "missing_sender"))
	MailSendFailed("missing_sender")
	after := testutil.ToFloat64(MailSendTotal.WithLabelValues("failed", "missing_sender"))
	assert.Equal(t, before+1, after)

	FlowFinished("confirm_reset", "sent")
	assert.GreaterOrEqual(t, testutil.ToFloat64(FlowsTotal.WithLabelValues("confirm_reset", "sent")), 1.0)
}
