package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_SendsPayloadAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/create-order", r.URL.Path)
		assert.Equal(t, "attempt-1", r.Header.Get("Idempotency-Key"))
		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1307), req.Amount)
		assert.Equal(t, "110001", req.ShippingAddress.Pincode)
		_ = json.NewEncoder(w).Encode(CreateOrderResponse{OrderID: "order_1", DBOrderID: "db1", Amount: 1307, Currency: "INR", KeyID: "rzp"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	out, err := c.CreateOrder(context.Background(), "attempt-1", CreateOrderRequest{
		Amount:          1307,
		Email:           "a@b.co",
		Items:           []domain.Item{{ProductID: "p1", Price: 500, Quantity: 2}},
		ShippingAddress: domain.ShippingAddress{Pincode: "110001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", out.OrderID)
	assert.Equal(t, "db1", out.DBOrderID)
}

func TestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/verify":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid payment signature"}`))
		case "/admin/orders":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	_, err := c.VerifyPayment(ctx, VerifyRequest{})
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "invalid payment signature", ae.Detail)
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	_, err = c.ListOrders(ctx)
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Not authenticated", ae.Detail)

	_, err = c.GetOrder(ctx, "x")
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Empty(t, ae.Detail)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).TrackOrder(context.Background(), "x")
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).ListOrders(context.Background())
	var te *TransportError
	assert.True(t, errors.As(err, &te), "hung request ends with a transport error")
}

func TestBearerTokenAndPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/admin/orders/o1/status", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SHIPPED", body["status"])
		assert.Equal(t, "DL123", body["tracking_id"])
		assert.NotContains(t, body, "tracking_url")
		_ = json.NewEncoder(w).Encode(domain.Order{ID: "o1", Status: domain.StatusShipped})
	}))
	defer srv.Close()

	tid := "DL123"
	c := New(srv.URL, time.Second, WithToken(func() string { return "tok" }))
	o, err := c.PatchOrderStatus(context.Background(), "o1", StatusPatch{
		Status:        domain.StatusShipped,
		TrackingPatch: domain.TrackingPatch{TrackingID: &tid},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, o.Status)
}
