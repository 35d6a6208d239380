package test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/core/payment"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
)

const gatewayServerKey = "SB-Mid-server-test"

// mockGateway imitates the payment provider: the snap endpoint issues
// tokens, and the status endpoint serves whatever state the test has set
// for an order. Orders without a state respond 404 like the real API.
type mockGateway struct {
	mu       sync.Mutex
	statuses map[string]midtrans.StatusReport
	created  []string
}

func newMockGateway() *mockGateway {
	return &mockGateway{statuses: make(map[string]midtrans.StatusReport)}
}

func (m *mockGateway) SetStatus(orderID string, state string, fraud string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[orderID] = midtrans.StatusReport{
		OrderID:           orderID,
		TransactionStatus: state,
		FraudStatus:       fraud,
		StatusCode:        "200",
		PaymentType:       "credit_card",
	}
}

func (m *mockGateway) CreatedOrders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

func (m *mockGateway) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/snap/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			web.Respond(context.Background(), w, nil, http.StatusUnauthorized)
			return
		}

		var req struct {
			TransactionDetails struct {
				OrderID     string `json:"order_id"`
				GrossAmount int64  `json:"gross_amount"`
			} `json:"transaction_details"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		if req.TransactionDetails.OrderID == "" || req.TransactionDetails.GrossAmount <= 0 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.created = append(m.created, req.TransactionDetails.OrderID)
		m.mu.Unlock()

		resp := map[string]string{
			"token":        "tok-" + req.TransactionDetails.OrderID,
			"redirect_url": "https://gateway.test/pay/" + req.TransactionDetails.OrderID,
		}
		web.Respond(context.Background(), w, resp, http.StatusCreated)
	})

	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		orderID := r.URL.Path[len("/v2/"):]
		orderID = orderID[:len(orderID)-len("/status")]

		m.mu.Lock()
		report, ok := m.statuses[orderID]
		m.mu.Unlock()

		if !ok {
			web.Respond(context.Background(), w, map[string]string{
				"status_code":    "404",
				"status_message": "Transaction doesn't exist.",
			}, http.StatusNotFound)
			return
		}
		web.Respond(context.Background(), w, report, http.StatusOK)
	})

	return mux
}

func notify(te *TestEnv, orderID string, state string, fraud string) (int, error) {
	body := map[string]string{
		"order_id":           orderID,
		"transaction_status": state,
	}
	if fraud != "" {
		body["fraud_status"] = fraud
	}
	return te.postJSON(http.MethodPost, "/payment/notification", body, nil)
}

type checkoutResponse struct {
	OrderID     string `json:"orderId"`
	PaymentLink string `json:"paymentLink"`
	Token       string `json:"token"`
}

type paymentView struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

// setupPaidCourse signs up an instructor with a published paid course and a
// subscriber ready to buy it. The subscriber is left logged in.
func setupPaidCourse(t *testing.T, te *TestEnv, price int64) (courseID string) {
	t.Helper()
	return setupCourse(t, te, price, true)
}

func setupCourse(t *testing.T, te *TestEnv, price int64, publish bool) (courseID string) {
	t.Helper()

	require.NoError(t, te.Signup("Ina Structor", "ina@example.com", "gopher123"))
	require.NoError(t, te.Login("ina@example.com", "gopher123"))

	code, err := te.postJSON(http.MethodPost, "/users/instructor", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	// The session role is fixed at login, so pick up the new role.
	require.NoError(t, te.Logout())
	require.NoError(t, te.Login("ina@example.com", "gopher123"))

	var created struct {
		ID string `json:"id"`
	}
	code, err = te.postJSON(http.MethodPost, "/courses", map[string]any{
		"title":       "Practical Go",
		"description": "Build services in Go.",
		"category":    "Programming",
		"pricing":     "Paid",
		"currency":    "IDR",
		"price":       price,
		"level":       "Beginner",
	}, &created)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, created.ID)

	if publish {
		code, err = te.postJSON(http.MethodPost, "/courses/"+created.ID+"/publish", nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, code)
	}

	require.NoError(t, te.Logout())
	require.NoError(t, te.Signup("Bud Learner", "bud@example.com", "gopher123"))
	require.NoError(t, te.Login("bud@example.com", "gopher123"))

	return created.ID
}

func checkout(t *testing.T, te *TestEnv, courseID string) checkoutResponse {
	t.Helper()

	var out checkoutResponse
	code, err := te.postJSON(http.MethodPost, "/payment/create", map[string]string{
		"courseId": courseID,
	}, &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, out.OrderID)
	require.Equal(t, "tok-"+out.OrderID, out.Token)
	return out
}

func paymentStatus(t *testing.T, te *TestEnv, orderID string) paymentView {
	t.Helper()

	var out paymentView
	code, err := te.getJSON("/payment/status/"+orderID, &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	return out
}

func enrolledCourses(t *testing.T, te *TestEnv) []string {
	t.Helper()

	var out []struct {
		ID string `json:"id"`
	}
	code, err := te.getJSON("/courses/owned", &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	ids := make([]string, 0, len(out))
	for _, c := range out {
		ids = append(ids, c.ID)
	}
	return ids
}

func instructorEarnings(t *testing.T, te *TestEnv) int64 {
	t.Helper()

	require.NoError(t, te.Logout())
	require.NoError(t, te.Login("ina@example.com", "gopher123"))
	defer func() {
		require.NoError(t, te.Logout())
		require.NoError(t, te.Login("bud@example.com", "gopher123"))
	}()

	var out struct {
		TotalEarnings int64 `json:"totalEarnings"`
	}
	code, err := te.getJSON("/instructor/earnings", &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	return out.TotalEarnings
}

func TestPaymentSettlement(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_settlement")
	defer teardown()

	courseID := setupPaidCourse(t, te, 150000)
	out := checkout(t, te, courseID)

	assert.Contains(t, te.Gateway.CreatedOrders(), out.OrderID)
	assert.Equal(t, "pending", paymentStatus(t, te, out.OrderID).Status)
	assert.Empty(t, enrolledCourses(t, te))

	te.Gateway.SetStatus(out.OrderID, "settlement", "")
	code, err := notify(te, out.OrderID, "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, "success", paymentStatus(t, te, out.OrderID).Status)
	assert.Equal(t, []string{courseID}, enrolledCourses(t, te))
	assert.Equal(t, int64(150000), instructorEarnings(t, te))

	// A replayed notification must not enroll or credit twice.
	code, err = notify(te, out.OrderID, "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, []string{courseID}, enrolledCourses(t, te))
	assert.Equal(t, int64(150000), instructorEarnings(t, te))
}

func TestPaymentTerminalStatusSticks(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_sticky")
	defer teardown()

	courseID := setupPaidCourse(t, te, 99000)
	out := checkout(t, te, courseID)

	te.Gateway.SetStatus(out.OrderID, "settlement", "")
	code, err := notify(te, out.OrderID, "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", paymentStatus(t, te, out.OrderID).Status)

	// A late cancel after settlement changes nothing.
	te.Gateway.SetStatus(out.OrderID, "cancel", "")
	code, err = notify(te, out.OrderID, "cancel", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, "success", paymentStatus(t, te, out.OrderID).Status)
	assert.Equal(t, []string{courseID}, enrolledCourses(t, te))
}

func TestPaymentChallengeThenAccept(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_challenge")
	defer teardown()

	courseID := setupPaidCourse(t, te, 250000)
	out := checkout(t, te, courseID)

	te.Gateway.SetStatus(out.OrderID, "capture", "challenge")
	code, err := notify(te, out.OrderID, "capture", "challenge")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, "pending", paymentStatus(t, te, out.OrderID).Status)
	assert.Empty(t, enrolledCourses(t, te))

	te.Gateway.SetStatus(out.OrderID, "capture", "accept")
	code, err = notify(te, out.OrderID, "capture", "accept")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, "success", paymentStatus(t, te, out.OrderID).Status)
	assert.Equal(t, []string{courseID}, enrolledCourses(t, te))
}

func TestPaymentDenied(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_denied")
	defer teardown()

	courseID := setupPaidCourse(t, te, 120000)
	out := checkout(t, te, courseID)

	te.Gateway.SetStatus(out.OrderID, "deny", "")
	code, err := notify(te, out.OrderID, "deny", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, "failed", paymentStatus(t, te, out.OrderID).Status)
	assert.Empty(t, enrolledCourses(t, te))
	assert.Equal(t, int64(0), instructorEarnings(t, te))

	// A failed order does not block buying the course again.
	retry := checkout(t, te, courseID)
	assert.NotEqual(t, out.OrderID, retry.OrderID)
}

func TestPaymentAlreadyEnrolled(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_enrolled")
	defer teardown()

	courseID := setupPaidCourse(t, te, 80000)
	out := checkout(t, te, courseID)

	te.Gateway.SetStatus(out.OrderID, "settlement", "")
	code, err := notify(te, out.OrderID, "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	code, err = te.postJSON(http.MethodPost, "/payment/create", map[string]string{
		"courseId": courseID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestPaymentNotificationUnknownOrder(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_unknown")
	defer teardown()

	// The webhook must ack even for orders it cannot resolve.
	code, err := notify(te, "ORDER-does-not-exist", "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
}

func TestPaymentUnpublishedCourse(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_unpublished")
	defer teardown()

	courseID := setupCourse(t, te, 150000, false)

	// An unpublished course is invisible to buyers, even with its UUID.
	code, err := te.postJSON(http.MethodPost, "/payment/create", map[string]string{
		"courseId": courseID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, te.Gateway.CreatedOrders())
}

// backdatePayment shifts an order's creation time to exercise age-gated
// sweeper behavior.
func backdatePayment(t *testing.T, te *TestEnv, orderID string, age time.Duration) {
	t.Helper()

	const q = `UPDATE payments SET created_at = created_at - make_interval(secs => $2) WHERE order_id = $1`
	_, err := te.DB.Exec(q, orderID, int64(age.Seconds()))
	require.NoError(t, err)
}

func TestPaymentSweep(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_sweep")
	defer teardown()

	courseID := setupPaidCourse(t, te, 150000)

	// Three abandoned checkouts: one the gateway expired, one it never
	// heard of and old enough to give up on, one it never heard of but
	// too young to condemn.
	gatewayExpired := checkout(t, te, courseID)
	lostOld := checkout(t, te, courseID)
	lostYoung := checkout(t, te, courseID)

	te.Gateway.SetStatus(gatewayExpired.OrderID, "expire", "")
	backdatePayment(t, te, gatewayExpired.OrderID, time.Hour)
	backdatePayment(t, te, lostOld.OrderID, 25*time.Hour)
	backdatePayment(t, te, lostYoung.OrderID, time.Hour)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	payment.Sweep(context.Background(), te.DB, te.GatewayClient, log, 15*time.Minute)

	assert.Equal(t, "expired", paymentStatus(t, te, gatewayExpired.OrderID).Status)
	assert.Equal(t, "expired", paymentStatus(t, te, lostOld.OrderID).Status)
	assert.Equal(t, "pending", paymentStatus(t, te, lostYoung.OrderID).Status)

	// An expired order does not block a fresh checkout settling later.
	retry := checkout(t, te, courseID)
	te.Gateway.SetStatus(retry.OrderID, "settlement", "")
	code, err := notify(te, retry.OrderID, "settlement", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", paymentStatus(t, te, retry.OrderID).Status)
}

func TestPaymentSweepFresh(t *testing.T) {
	te, teardown := NewTestEnv(t, "payment_sweep_fresh")
	defer teardown()

	courseID := setupPaidCourse(t, te, 99000)
	out := checkout(t, te, courseID)

	// A fresh pending order is below the sweep age and must not be touched.
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	payment.Sweep(context.Background(), te.DB, te.GatewayClient, log, 15*time.Minute)

	assert.Equal(t, "pending", paymentStatus(t, te, out.OrderID).Status)
}
