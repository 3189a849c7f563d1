package handler

import (
	"github.com/bitfantasy/procurehub/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// OfferHandler 报价处理器
type OfferHandler struct {
	svc *service.OfferService
}

func NewOfferHandler(svc *service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

// Submit 供应商提交报价
// POST /api/v1/workflow/requests/:id/offers
func (h *OfferHandler) Submit(c *gin.Context) {
	var input service.SubmitOfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	offer, err := h.svc.Submit(c.Request.Context(), GetActor(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, offer)
}

// ListByRequest 需求单的报价列表，按提交顺序
// GET /api/v1/workflow/requests/:id/offers
func (h *OfferHandler) ListByRequest(c *gin.Context) {
	offers, err := h.svc.ListByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, offers)
}

// Get 报价详情
// GET /api/v1/workflow/offers/:id
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, offer)
}
