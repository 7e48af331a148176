package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-retail-backend/internal/services"
)

type reportSvcStub struct {
	eval    func(ctx context.Context, productID string) (*services.ProductEvaluation, error)
	summary func(ctx context.Context, clientID string) (*services.CustomerSummary, error)
	inv     func(ctx context.Context) ([]services.InventoryLine, error)
}

func (s reportSvcStub) EvaluateProduct(ctx context.Context, productID string) (*services.ProductEvaluation, error) {
	return s.eval(ctx, productID)
}
func (s reportSvcStub) Summary(ctx context.Context, clientID string) (*services.CustomerSummary, error) {
	return s.summary(ctx, clientID)
}
func (s reportSvcStub) Inventory(ctx context.Context) ([]services.InventoryLine, error) {
	return s.inv(ctx)
}

type statsSvcStub struct {
	avg        func(ctx context.Context, productID string) (decimal.Decimal, error)
	profit     func(ctx context.Context, productID string) (decimal.Decimal, error)
	commission func(ctx context.Context, employeeID string, rate decimal.Decimal) (decimal.Decimal, error)
}

func (s statsSvcStub) AverageOrderCost(ctx context.Context, productID string) (decimal.Decimal, error) {
	return s.avg(ctx, productID)
}
func (s statsSvcStub) Profit(ctx context.Context, productID string) (decimal.Decimal, error) {
	return s.profit(ctx, productID)
}
func (s statsSvcStub) EmployeeCommission(ctx context.Context, employeeID string, rate decimal.Decimal) (decimal.Decimal, error) {
	return s.commission(ctx, employeeID, rate)
}

func newReportHandlers(stats StatsService, rep ReportService) *Handlers {
	return New(stubOrderSvc{}, stubActSvc{}, &services.CatalogService{}, stats, rep,
		stubNotifSvc{}, &services.MaintenanceService{})
}

func TestEvaluateProduct_NotFoundIsPayloadStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pid := uuid.NewString()
	h := newReportHandlers(stubStatsSvc{}, reportSvcStub{
		eval: func(ctx context.Context, productID string) (*services.ProductEvaluation, error) {
			return &services.ProductEvaluation{Status: services.EvalStatusNotFound, ProductID: productID}, nil
		},
	})
	r := gin.New()
	r.GET("/products/:id/evaluation", h.EvaluateProduct)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/"+pid+"/evaluation", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("missing product must stay 200, got %d", w.Code)
	}
	var ev services.ProductEvaluation
	if err := json.Unmarshal(w.Body.Bytes(), &ev); err != nil {
		t.Fatalf("json: %v", err)
	}
	if ev.Status != services.EvalStatusNotFound || ev.ProductID != pid {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}
}

func TestProductProfit_and_GlobalProfit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newReportHandlers(statsSvcStub{
		profit: func(ctx context.Context, productID string) (decimal.Decimal, error) {
			if productID == "" {
				return decimal.RequireFromString("99.50"), nil
			}
			return decimal.RequireFromString("30"), nil
		},
	}, stubReportSvc{})
	r := gin.New()
	r.GET("/products/:id/profit", h.ProductProfit)
	r.GET("/reports/profit", h.GlobalProfit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString()+"/profit", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("product profit -> %d", w.Code)
	}
	var amt AmountResponse
	if err := json.Unmarshal(w.Body.Bytes(), &amt); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !amt.Amount.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("product profit = %s", amt.Amount)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/reports/profit", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("global profit -> %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &amt); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !amt.Amount.Equal(decimal.RequireFromString("99.50")) {
		t.Fatalf("global profit = %s", amt.Amount)
	}
}

func TestEmployeeCommission_RateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newReportHandlers(statsSvcStub{
		commission: func(ctx context.Context, employeeID string, rate decimal.Decimal) (decimal.Decimal, error) {
			return decimal.RequireFromString("100").Mul(rate), nil
		},
	}, stubReportSvc{})
	r := gin.New()
	r.GET("/employees/:id/commission", h.EmployeeCommission)

	eid := uuid.NewString()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/employees/"+eid+"/commission", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing rate -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/employees/"+eid+"/commission?rate=abc", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage rate -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/employees/"+eid+"/commission?rate=0.05", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("commission -> %d", w.Code)
	}
	var resp CommissionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.Rate.Equal(decimal.RequireFromString("0.05")) || !resp.Amount.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("unexpected commission: %+v", resp)
	}
}

func TestClientSummary_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newReportHandlers(stubStatsSvc{}, reportSvcStub{
		summary: func(ctx context.Context, clientID string) (*services.CustomerSummary, error) {
			return nil, services.ErrClientNotFound
		},
	})
	r := gin.New()
	r.GET("/clients/:id/summary", h.ClientSummary)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clients/"+uuid.NewString()+"/summary", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing client -> %d", w.Code)
	}
}

func TestInventoryReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newReportHandlers(stubStatsSvc{}, reportSvcStub{
		inv: func(ctx context.Context) ([]services.InventoryLine, error) {
			return []services.InventoryLine{
				{ProductID: "p1", AlertTier: services.AlertTierUrgent},
				{ProductID: "p2", AlertTier: services.AlertTierHigh},
			}, nil
		},
	})
	r := gin.New()
	r.GET("/reports/inventory", h.InventoryReport)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/inventory", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("inventory -> %d", w.Code)
	}
	var lines []services.InventoryLine
	if err := json.Unmarshal(w.Body.Bytes(), &lines); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(lines) != 2 || lines[0].ProductID != "p1" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}
