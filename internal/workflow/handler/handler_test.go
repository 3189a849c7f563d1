package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/procurehub/internal/notify"
	"github.com/bitfantasy/procurehub/internal/testutil"
	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"github.com/bitfantasy/procurehub/internal/workflow/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	pmToken = testutil.GenerateTestToken("u-pm", "pm-alice", entity.RoleProjectManager)
	rpToken = testutil.GenerateTestToken("u-rp", "rp-carol", entity.RoleResourcePlanner)
	poToken = testutil.GenerateTestToken("u-po", "po-dave", entity.RoleProcurementOfficer)
	spToken = testutil.GenerateTestToken("u-sp", "sp-eve", entity.RoleServiceProvider)
)

func setupWorkflowAPI(t *testing.T) *gin.Engine {
	t.Helper()

	stores := repository.NewMemoryStores(repository.Policy{AllowMultipleOffersPerProvider: true})
	services := service.NewServices(stores, notify.NewLogNotifier(zap.NewNop()), zap.NewNop(),
		service.Config{DefaultBiddingCycleDays: 14}, time.Now)
	handlers := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/workflow")

	requests := api.Group("/requests")
	requests.GET("", handlers.Request.List)
	requests.POST("", handlers.Request.Create)
	requests.GET("/:id", handlers.Request.Get)
	requests.PUT("/:id", handlers.Request.Update)
	requests.GET("/:id/activities", handlers.Request.ActivityLogs)
	requests.POST("/:id/submit-for-review", handlers.Request.SubmitForReview)
	requests.POST("/:id/approve", handlers.Request.Approve)
	requests.POST("/:id/reject", handlers.Request.Reject)
	requests.POST("/:id/start-bidding", handlers.Request.StartBidding)
	requests.POST("/:id/recommend", handlers.Evaluation.Recommend)
	requests.POST("/:id/send-to-po", handlers.Request.SendToPO)
	requests.POST("/:id/order", handlers.Request.Order)
	requests.POST("/:id/reactivate", handlers.Request.Reactivate)
	requests.GET("/:id/offers", handlers.Offer.ListByRequest)
	requests.POST("/:id/offers", handlers.Offer.Submit)
	requests.GET("/:id/evaluation", handlers.Evaluation.Get)
	requests.PUT("/:id/evaluation", handlers.Evaluation.Save)

	return router
}

func createRequestHTTP(t *testing.T, router *gin.Engine, maxOffers int) string {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests", map[string]interface{}{
		"title":      "数据平台运维外包",
		"type":       "single",
		"roles":      []map[string]interface{}{{"domain": "ops", "role_name": "SRE", "man_days": 90}},
		"max_offers": maxOffers,
	}, pmToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	return data["id"].(string)
}

func doAction(t *testing.T, router *gin.Engine, id, action, token string, body interface{}) {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/"+action, body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("%s: expected 200, got %d: %s", action, w.Code, w.Body.String())
	}
}

func TestRequestLifecycleHTTP(t *testing.T) {
	router := setupWorkflowAPI(t)
	id := createRequestHTTP(t, router, 0)

	doAction(t, router, id, "submit-for-review", pmToken, nil)
	doAction(t, router, id, "approve", rpToken, nil)
	doAction(t, router, id, "start-bidding", pmToken, nil)

	// 报价
	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/offers", map[string]interface{}{
		"provider_name": "Eve咨询",
		"price":         62000,
		"delivery_days": 45,
	}, spToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit offer: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	offerID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	doAction(t, router, id, "recommend", rpToken, map[string]interface{}{"offer_id": offerID})
	doAction(t, router, id, "send-to-po", pmToken, nil)
	doAction(t, router, id, "order", poToken, map[string]interface{}{"offer_id": offerID, "order_id": "PO-7"})

	w = testutil.DoRequest(router, "GET", "/api/v1/workflow/requests/"+id, nil, pmToken)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.StatusOrdered {
		t.Fatalf("expected ordered, got %v", data["status"])
	}
}

func TestCreateRequiresProjectManager(t *testing.T) {
	router := setupWorkflowAPI(t)

	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests", map[string]interface{}{
		"title": "越权创建", "type": "single",
	}, spToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40300 {
		t.Fatalf("expected code 40300, got %v", resp["code"])
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	router := setupWorkflowAPI(t)

	w := testutil.DoRequest(router, "GET", "/api/v1/workflow/requests", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestInvalidTransitionConflict(t *testing.T) {
	router := setupWorkflowAPI(t)
	id := createRequestHTTP(t, router, 0)

	// draft不能直接approve
	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/approve", nil, rpToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Fatalf("expected code 40900, got %v", resp["code"])
	}
}

func TestOfferQuotaConflictHTTP(t *testing.T) {
	router := setupWorkflowAPI(t)
	id := createRequestHTTP(t, router, 2)
	doAction(t, router, id, "submit-for-review", pmToken, nil)
	doAction(t, router, id, "approve", rpToken, nil)
	doAction(t, router, id, "start-bidding", pmToken, nil)

	for i := 0; i < 2; i++ {
		token := testutil.GenerateTestToken(fmt.Sprintf("u-sp-%d", i), fmt.Sprintf("sp-%d", i), entity.RoleServiceProvider)
		w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/offers", map[string]interface{}{
			"price": 1000 + float64(i),
		}, token)
		if w.Code != http.StatusCreated {
			t.Fatalf("offer %d: expected 201, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	// 配额已满，需求单已进入评估
	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/offers", map[string]interface{}{
		"price": 999,
	}, spToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 after quota, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEvaluationHTTP(t *testing.T) {
	router := setupWorkflowAPI(t)
	id := createRequestHTTP(t, router, 0)
	doAction(t, router, id, "submit-for-review", pmToken, nil)
	doAction(t, router, id, "approve", rpToken, nil)
	doAction(t, router, id, "start-bidding", pmToken, nil)

	w := testutil.DoRequest(router, "POST", "/api/v1/workflow/requests/"+id+"/offers", map[string]interface{}{
		"price": 58000, "delivery_days": 30,
	}, spToken)
	offerID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(router, "PUT", "/api/v1/workflow/requests/"+id+"/evaluation", map[string]interface{}{
		"price_weight":    0.6,
		"delivery_weight": 0.25,
		"quality_weight":  0.15,
		"scores": []map[string]interface{}{
			{"offer_id": offerID, "score_price": 8, "score_delivery": 7, "score_quality": 9},
		},
	}, rpToken)
	if w.Code != http.StatusOK {
		t.Fatalf("save evaluation: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	offers := testutil.ParseResponse(w)["data"].(map[string]interface{})["offers"].([]interface{})
	row := offers[0].(map[string]interface{})
	if row["total_score"].(float64) != 7.9 {
		t.Fatalf("expected total 7.9, got %v", row["total_score"])
	}

	// 供应商不可读评估
	w = testutil.DoRequest(router, "GET", "/api/v1/workflow/requests/"+id+"/evaluation", nil, spToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for provider, got %d", w.Code)
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/workflow/requests/"+id+"/evaluation", nil, rpToken)
	if w.Code != http.StatusOK {
		t.Fatalf("get evaluation: expected 200, got %d", w.Code)
	}
}

func TestNotFoundHTTP(t *testing.T) {
	router := setupWorkflowAPI(t)

	w := testutil.DoRequest(router, "GET", "/api/v1/workflow/requests/missing", nil, pmToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Fatalf("expected code 40400, got %v", resp["code"])
	}
}

func TestListPaginationHTTP(t *testing.T) {
	router := setupWorkflowAPI(t)
	for i := 0; i < 3; i++ {
		createRequestHTTP(t, router, 0)
	}

	w := testutil.DoRequest(router, "GET", "/api/v1/workflow/requests?page=1&page_size=2", nil, pmToken)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items on page 1, got %d", len(items))
	}
	pagination := data["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 3 {
		t.Fatalf("expected total 3, got %v", pagination["total"])
	}
	if pagination["total_pages"].(float64) != 2 {
		t.Fatalf("expected 2 pages, got %v", pagination["total_pages"])
	}
}
