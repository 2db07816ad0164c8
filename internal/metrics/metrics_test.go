package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(workflowDecisions.WithLabelValues("contract", "approved"))
	Decision("contract", "approved")
	assert.Equal(t, before+1, testutil.ToFloat64(workflowDecisions.WithLabelValues("contract", "approved")))

	before = testutil.ToFloat64(statusTransitions.WithLabelValues("tender", "draft", "published"))
	Transition("tender", "draft", "published")
	assert.Equal(t, before+1, testutil.ToFloat64(statusTransitions.WithLabelValues("tender", "draft", "published")))
}

func TestHandler(t *testing.T) {
	ObserveRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	WorkflowCreated("contract", "high")
	UnresolvedApprover("director")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "procurement_workflows_created_total")
	assert.Contains(t, rec.Body.String(), "procurement_unresolved_approvers_total")
}
